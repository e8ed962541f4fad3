package mailer

import (
	"fmt"
	"html"
)

const OtpSubject = "Your verification code"

func OtpEmailHTML(code string, validMinutes int) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #f8f9fa; border: 2px dashed #1976d2; border-radius: 8px; padding: 20px; text-align: center;">
        <p>Your verification code is:</p>
        <p style="font-size: 36px; font-weight: bold; letter-spacing: 8px; font-family: 'Courier New', monospace; color: #1976d2;">%s</p>
        <p style="color: #e53e3e; font-weight: 600;">This code expires in %d minutes.</p>
    </div>
    <p style="color: #666; font-size: 13px;">If you did not request this code, you can ignore this email.</p>
</body>
</html>`, html.EscapeString(code), validMinutes)
}

const WelcomeSubject = "Your account is ready"

func WelcomeEmailHTML(name, login, password, resetURL string) string {
	reset := ""
	if resetURL != "" {
		reset = fmt.Sprintf(`<p>You can change it any time here: <a href="%s">%s</a></p>`,
			html.EscapeString(resetURL), html.EscapeString(resetURL))
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <p>Hello %s,</p>
    <p>Your account has been created.</p>
    <p>Login: <strong>%s</strong><br>
    Temporary password: <strong>%s</strong></p>
    %s
    <p style="color: #666; font-size: 13px;">Please change the temporary password after your first login.</p>
</body>
</html>`, html.EscapeString(name), html.EscapeString(login), html.EscapeString(password), reset)
}
