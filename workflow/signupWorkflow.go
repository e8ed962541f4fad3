package workflow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/mailer"
	"bitbucket.org/bjitlabs/erpgate_backend/utils"
	"github.com/sirupsen/logrus"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Otp      string `json:"otp"`
}

type SignupResult struct {
	UserId int `json:"user_id"`
	// Password is set only when the policy generated the credential; this
	// response is the single channel it is ever transmitted on.
	Password  string `json:"password,omitempty"`
	Token     string `json:"token,omitempty"`
	EmailSent bool   `json:"email_sent"`
}

// SignupPolicy decides how a signup attempt proves itself and what credential
// the new account gets. Exactly one policy is active per deployment.
type SignupPolicy interface {
	Name() config.SignupPolicyName
	// Credential gates the attempt and returns the password for the new
	// account, plus whether it was generated server-side.
	Credential(ctx context.Context, req SignupRequest) (password string, generated bool, err error)
}

// OtpSignupPolicy requires a live one-time code for the email and generates
// the credential server-side; a client-supplied password is never accepted.
type OtpSignupPolicy struct {
	Otps     OtpRepository
	Attempts AttemptCounter
	Logger   *logrus.Logger
	Cfg      config.Config
}

func (p *OtpSignupPolicy) Name() config.SignupPolicyName {
	return config.SignupPolicyOtp
}

func (p *OtpSignupPolicy) Credential(ctx context.Context, req SignupRequest) (string, bool, error) {
	if strings.TrimSpace(req.Otp) == "" {
		return "", false, Validation("otp is required")
	}
	if err := VerifyAndConsumeOtp(ctx, p.Otps, p.Attempts, p.Logger, p.Cfg, req.Email, req.Otp); err != nil {
		return "", false, err
	}
	password, err := utils.GeneratePassword(12)
	if err != nil {
		config.LogError(p.Logger, "signupWorkflow.go", "Credential", "GeneratePassword", nil, err)
		return "", false, Dependency("could not generate a credential", err)
	}
	return password, true, nil
}

// DirectSignupPolicy accepts a caller-supplied password without OTP gating.
type DirectSignupPolicy struct{}

func (DirectSignupPolicy) Name() config.SignupPolicyName {
	return config.SignupPolicyDirect
}

func (DirectSignupPolicy) Credential(_ context.Context, req SignupRequest) (string, bool, error) {
	if len(req.Password) < 8 {
		return "", false, Validation("password must be at least 8 characters")
	}
	return req.Password, false, nil
}

// Signup creates an account with its linked profile and role. The account is
// not considered created until the profile, the user record and its role
// membership all exist; a failure partway deletes what was already written.
// Welcome-mail failure is non-fatal and reported through EmailSent.
func Signup(ctx context.Context, store erp.Store, policy SignupPolicy, sender mailer.Mailer, logger *logrus.Logger, cfg config.Config, req SignupRequest) (*SignupResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		return nil, Validation("missing required fields: name, email")
	}
	if !utils.IsValidEmail(req.Email) {
		return nil, Validation("a valid email is required")
	}
	if req.Phone != "" {
		if err := utils.ValidatePhoneNumber(req.Phone, utils.CountryCode); err != nil {
			return nil, Validation("phone number is not valid")
		}
	}

	password, generated, err := policy.Credential(ctx, req)
	if err != nil {
		return nil, err
	}

	// Re-check after the OTP gate: another signup may have won the race.
	_, err = store.FindUserByLogin(ctx, req.Email)
	if err == nil {
		return nil, Conflict("user with this email already exists")
	}
	if !errors.Is(err, erp.ErrNotFound) {
		config.LogError(logger, "signupWorkflow.go", "Signup", "FindUserByLogin", req.Email, err)
		return nil, Dependency("could not check the email", err)
	}

	groupId, err := store.PortalGroupId(ctx)
	if err != nil {
		config.LogError(logger, "signupWorkflow.go", "Signup", "PortalGroupId", nil, err)
		return nil, Dependency("could not resolve the portal role", err)
	}

	partnerId, err := store.CreatePartner(ctx, erp.PartnerInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CustomerRank: 1,
	})
	if err != nil {
		config.LogError(logger, "signupWorkflow.go", "Signup", "CreatePartner", req.Email, err)
		return nil, Dependency("could not create the profile", err)
	}

	userId, err := store.CreateUser(ctx, erp.UserInput{
		Name:      req.Name,
		Login:     req.Email,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  password,
		PartnerId: partnerId,
		GroupId:   groupId,
	})
	if err != nil {
		config.LogError(logger, "signupWorkflow.go", "Signup", "CreateUser", req.Email, err)

		// The store may have written the user before raising. Remove every
		// trace so no half-linked account stays queryable.
		if ghost, findErr := store.FindUserByLogin(ctx, req.Email); findErr == nil {
			if delErr := store.DeleteUser(ctx, ghost.Id); delErr != nil {
				config.LogError(logger, "signupWorkflow.go", "Signup", "CompensateUser", ghost.Id, delErr)
			}
		}
		if delErr := store.DeletePartner(ctx, partnerId); delErr != nil {
			config.LogError(logger, "signupWorkflow.go", "Signup", "CompensatePartner", partnerId, delErr)
		}

		if erp.IsUniqueViolation(err) {
			return nil, Conflict("user with this email already exists")
		}
		return nil, Dependency("account creation failed", err)
	}

	result := &SignupResult{UserId: userId, EmailSent: true}
	if generated {
		result.Password = password
	}

	token, err := utils.JwtGenerate(cfg.JwtSecret, userId, req.Email, cfg.JwtLifespan)
	if err != nil {
		config.LogError(logger, "signupWorkflow.go", "Signup", "JwtGenerate", userId, err)
	} else {
		result.Token = token
	}

	welcomePassword := ""
	if generated {
		welcomePassword = password
	}
	body := mailer.WelcomeEmailHTML(req.Name, req.Email, welcomePassword, cfg.ResetBaseURL)
	if err := sender.Send(ctx, req.Email, mailer.WelcomeSubject, body); err != nil {
		config.LogError(logger, "signupWorkflow.go", "Signup", "SendWelcomeMail", req.Email, err)
		result.EmailSent = false
	}

	return result, nil
}
