package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SignupPolicyName string

const (
	SignupPolicyOtp    SignupPolicyName = "otp"
	SignupPolicyDirect SignupPolicyName = "direct"
)

// Config carries everything resolved once at process start. Handlers and
// workflows receive it explicitly; nothing reads the access key or the acting
// system identity from ambient state at request time.
type Config struct {
	APIAccessKey string

	ErpBaseURL      string
	ErpDatabase     string
	ErpSystemUserId int
	ErpAPIKey       string
	ErpTimeout      time.Duration

	JwtSecret   string
	JwtLifespan time.Duration

	SignupPolicy SignupPolicyName

	MailFrom     string
	ResetBaseURL string

	OtpTTL         time.Duration
	OtpMaxAttempts int
}

// Load resolves the configuration from the environment (.env honoured) and
// fails on anything the process cannot run without.
func Load() (Config, error) {
	godotenv.Load()

	cfg := Config{
		APIAccessKey: strings.TrimSpace(os.Getenv("API_ACCESS_KEY")),
		ErpBaseURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("ERP_BASE_URL")), "/"),
		ErpDatabase:  strings.TrimSpace(os.Getenv("ERP_DB")),
		ErpAPIKey:    strings.TrimSpace(os.Getenv("ERP_API_KEY")),
		JwtSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
		MailFrom:     strings.TrimSpace(os.Getenv("MAIL_FROM")),
		ResetBaseURL: strings.TrimSpace(os.Getenv("RESET_PASSWORD_BASE_URL")),
	}

	var missing []string
	if cfg.APIAccessKey == "" {
		missing = append(missing, "API_ACCESS_KEY")
	}
	if cfg.ErpBaseURL == "" {
		missing = append(missing, "ERP_BASE_URL")
	}
	if cfg.ErpDatabase == "" {
		missing = append(missing, "ERP_DB")
	}
	if cfg.ErpAPIKey == "" {
		missing = append(missing, "ERP_API_KEY")
	}
	if cfg.JwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.MailFrom == "" {
		missing = append(missing, "MAIL_FROM")
	}

	// The acting system identity is required up front. No probing of
	// well-known user ids at request time.
	sysUser := strings.TrimSpace(os.Getenv("ERP_SYSTEM_USER_ID"))
	if sysUser == "" {
		missing = append(missing, "ERP_SYSTEM_USER_ID")
	} else {
		id, err := strconv.Atoi(sysUser)
		if err != nil || id <= 0 {
			return Config{}, fmt.Errorf("ERP_SYSTEM_USER_ID must be a positive integer, got %q", sysUser)
		}
		cfg.ErpSystemUserId = id
	}

	if len(missing) > 0 {
		return Config{}, errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	switch SignupPolicyName(strings.ToLower(strings.TrimSpace(os.Getenv("SIGNUP_POLICY")))) {
	case SignupPolicyDirect:
		cfg.SignupPolicy = SignupPolicyDirect
	case SignupPolicyOtp, "":
		cfg.SignupPolicy = SignupPolicyOtp
	default:
		return Config{}, fmt.Errorf("SIGNUP_POLICY must be %q or %q", SignupPolicyOtp, SignupPolicyDirect)
	}

	cfg.ErpTimeout = time.Duration(intFromEnv("ERP_TIMEOUT_SECONDS", 30)) * time.Second
	cfg.JwtLifespan = time.Duration(intFromEnv("TOKEN_HOUR_LIFESPAN", 24)) * time.Hour
	cfg.OtpTTL = time.Duration(intFromEnv("OTP_TTL_MINUTES", 5)) * time.Minute
	cfg.OtpMaxAttempts = intFromEnv("OTP_MAX_ATTEMPTS", 5)

	return cfg, nil
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
