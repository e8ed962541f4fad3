package workflow

import (
	"context"
	"errors"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"github.com/sirupsen/logrus"
)

// ResetPassword changes the account credential after re-authenticating with
// the current one. Identity alone is never enough; the old credential stops
// working the moment the new one is written.
func ResetPassword(ctx context.Context, users erp.UserStore, logger *logrus.Logger, email, oldPassword, newPassword string) error {
	if email == "" || oldPassword == "" || newPassword == "" {
		return Validation("missing required fields: email, old_password, new_password")
	}
	if len(newPassword) < 8 {
		return Validation("new password must be at least 8 characters")
	}

	user, err := users.FindUserByLogin(ctx, email)
	if errors.Is(err, erp.ErrNotFound) {
		return NotFound("user not found")
	}
	if err != nil {
		config.LogError(logger, "passwordWorkflow.go", "ResetPassword", "FindUserByLogin", email, err)
		return Dependency("could not look up the user", err)
	}

	ok, err := users.CheckCredential(ctx, email, oldPassword)
	if err != nil {
		config.LogError(logger, "passwordWorkflow.go", "ResetPassword", "CheckCredential", email, err)
		return Dependency("could not verify the current password", err)
	}
	if !ok {
		return Unauthorized("invalid current password")
	}

	if err := users.SetPassword(ctx, user.Id, newPassword); err != nil {
		config.LogError(logger, "passwordWorkflow.go", "ResetPassword", "SetPassword", user.Id, err)
		return Dependency("could not update the password", err)
	}
	return nil
}
