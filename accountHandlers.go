package main

import (
	"net/http"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"bitbucket.org/bjitlabs/erpgate_backend/mailer"
	"bitbucket.org/bjitlabs/erpgate_backend/utils"
	"bitbucket.org/bjitlabs/erpgate_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func otpRepository() workflow.OtpRepository {
	return &workflow.GormOtpRepository{DB: config.GetDB()}
}

type sendOtpRequest struct {
	Email string `json:"email" binding:"required"`
}

func sendOtpHandler(store erp.Store, sender mailer.Mailer, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req sendOtpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}

		err := workflow.RequestOtp(c.Request.Context(), store, otpRepository(), workflow.RedisAttemptCounter{}, sender, logger, cfg, req.Email)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "otp sent"})
	}
}

func signupPolicy(cfg config.Config, logger *logrus.Logger) workflow.SignupPolicy {
	if cfg.SignupPolicy == config.SignupPolicyDirect {
		return workflow.DirectSignupPolicy{}
	}
	return &workflow.OtpSignupPolicy{
		Otps:     otpRepository(),
		Attempts: workflow.RedisAttemptCounter{},
		Logger:   logger,
		Cfg:      cfg,
	}
}

func signupHandler(store erp.Store, sender mailer.Mailer, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req workflow.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required", "fields": utils.ProcessValidationErrors(err)})
			return
		}

		result, err := workflow.Signup(c.Request.Context(), store, signupPolicy(cfg, logger), sender, logger, cfg, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func resetPasswordHandler(store erp.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email, old_password and new_password are required"})
			return
		}

		if err := workflow.ResetPassword(c.Request.Context(), store, logger, req.Email, req.OldPassword, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "password updated"})
	}
}
