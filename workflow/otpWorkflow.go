package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/mailer"
	"bitbucket.org/bjitlabs/erpgate_backend/models"
	"bitbucket.org/bjitlabs/erpgate_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OtpRepository stores the gateway's one-time codes. Backed by the gateway
// MySQL in production; tests swap in an in-memory fake.
type OtpRepository interface {
	// ReplaceOtp deletes any outstanding code for email and stores the new
	// hash, keeping at most one live code per email.
	ReplaceOtp(ctx context.Context, email, otpHash string, expiration time.Time) error
	LiveOtp(ctx context.Context, email string, now time.Time) (*models.CustomerOtp, error)
	DeleteForEmail(ctx context.Context, email string) error
}

// AttemptCounter tracks failed verifications per email. Backed by redis; when
// redis is down it fails open (counting disabled, expiry still applies).
type AttemptCounter interface {
	Incr(ctx context.Context, email string, ttl time.Duration) (int64, error)
	Reset(ctx context.Context, email string) error
}

type GormOtpRepository struct {
	DB *gorm.DB
}

func (r *GormOtpRepository) ReplaceOtp(ctx context.Context, email, otpHash string, expiration time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.DeleteOtpsForEmail(tx, email); err != nil {
			return err
		}
		return tx.Create(&models.CustomerOtp{
			Email:          email,
			OtpHash:        otpHash,
			ExpirationTime: expiration,
		}).Error
	})
}

func (r *GormOtpRepository) LiveOtp(ctx context.Context, email string, now time.Time) (*models.CustomerOtp, error) {
	otp, err := models.FindLiveOtp(r.DB.WithContext(ctx), email, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return otp, err
}

func (r *GormOtpRepository) DeleteForEmail(ctx context.Context, email string) error {
	return models.DeleteOtpsForEmail(r.DB.WithContext(ctx), email)
}

type RedisAttemptCounter struct{}

func (RedisAttemptCounter) Incr(ctx context.Context, email string, ttl time.Duration) (int64, error) {
	return config.IncrRedisCounter(ctx, "OtpAttempts:"+email, ttl)
}

func (RedisAttemptCounter) Reset(ctx context.Context, email string) error {
	return config.RemoveRedisKey("OtpAttempts:" + email)
}

// RequestOtp issues a fresh one-time code for email and delivers it by mail.
// At most one live code per email: issuing invalidates any prior code. The
// whole operation fails when mail delivery fails; the stored code is removed
// again so a dead record cannot satisfy a later verification.
func RequestOtp(ctx context.Context, users erp.UserStore, otps OtpRepository, attempts AttemptCounter, sender mailer.Mailer, logger *logrus.Logger, cfg config.Config, email string) error {
	if !utils.IsValidEmail(email) {
		return Validation("a valid email is required")
	}

	_, err := users.FindUserByLogin(ctx, email)
	if err == nil {
		return Conflict("user with this email already exists")
	}
	if !errors.Is(err, erp.ErrNotFound) {
		config.LogError(logger, "otpWorkflow.go", "RequestOtp", "FindUserByLogin", email, err)
		return Dependency("could not check the email", err)
	}

	code, err := utils.GenerateOtpCode()
	if err != nil {
		config.LogError(logger, "otpWorkflow.go", "RequestOtp", "GenerateOtpCode", nil, err)
		return Dependency("could not generate a code", err)
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		config.LogError(logger, "otpWorkflow.go", "RequestOtp", "HashSecret", nil, err)
		return Dependency("could not generate a code", err)
	}

	if err := otps.ReplaceOtp(ctx, email, string(hash), time.Now().Add(cfg.OtpTTL)); err != nil {
		config.LogError(logger, "otpWorkflow.go", "RequestOtp", "ReplaceOtp", email, err)
		return Dependency("could not store the code", err)
	}
	if err := attempts.Reset(ctx, email); err != nil {
		config.LogError(logger, "otpWorkflow.go", "RequestOtp", "ResetAttempts", email, err)
	}

	subject := mailer.OtpSubject
	body := mailer.OtpEmailHTML(code, int(cfg.OtpTTL.Minutes()))
	if err := sender.Send(ctx, email, subject, body); err != nil {
		config.LogError(logger, "otpWorkflow.go", "RequestOtp", "SendMail", email, err)
		if delErr := otps.DeleteForEmail(ctx, email); delErr != nil {
			config.LogError(logger, "otpWorkflow.go", "RequestOtp", "DeleteAfterSendFailure", email, delErr)
		}
		return Dependency("could not deliver the verification code", err)
	}
	return nil
}

// VerifyAndConsumeOtp checks code against the live record for email and
// consumes it on success. A wrong code counts toward the attempt budget;
// exhausting the budget invalidates the code outright.
func VerifyAndConsumeOtp(ctx context.Context, otps OtpRepository, attempts AttemptCounter, logger *logrus.Logger, cfg config.Config, email, code string) error {
	invalid := Validation("invalid or expired verification code")

	otp, err := otps.LiveOtp(ctx, email, time.Now())
	if err != nil {
		config.LogError(logger, "otpWorkflow.go", "VerifyAndConsumeOtp", "LiveOtp", email, err)
		return Dependency("could not check the code", err)
	}
	if otp == nil {
		return invalid
	}

	if err := utils.CompareSecret(otp.OtpHash, code); err != nil {
		n, cntErr := attempts.Incr(ctx, email, cfg.OtpTTL)
		if cntErr != nil {
			config.LogError(logger, "otpWorkflow.go", "VerifyAndConsumeOtp", "IncrAttempts", email, cntErr)
		}
		if cfg.OtpMaxAttempts > 0 && n >= int64(cfg.OtpMaxAttempts) {
			if delErr := otps.DeleteForEmail(ctx, email); delErr != nil {
				config.LogError(logger, "otpWorkflow.go", "VerifyAndConsumeOtp", "DeleteAfterLockout", email, delErr)
			}
			return Validation(fmt.Sprintf("too many wrong attempts; request a new code (max %d)", cfg.OtpMaxAttempts))
		}
		return invalid
	}

	if err := otps.DeleteForEmail(ctx, email); err != nil {
		config.LogError(logger, "otpWorkflow.go", "VerifyAndConsumeOtp", "Consume", email, err)
		return Dependency("could not consume the code", err)
	}
	if err := attempts.Reset(ctx, email); err != nil {
		config.LogError(logger, "otpWorkflow.go", "VerifyAndConsumeOtp", "ResetAttempts", email, err)
	}
	return nil
}
