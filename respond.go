package main

import (
	"net/http"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/utils"
	"bitbucket.org/bjitlabs/erpgate_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func statusForKind(kind workflow.Kind) int {
	switch kind {
	case workflow.KindValidation:
		return http.StatusBadRequest
	case workflow.KindUnauthorized:
		return http.StatusUnauthorized
	case workflow.KindNotFound:
		return http.StatusNotFound
	case workflow.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError translates a workflow error into its HTTP shape. Unclassified
// errors surface a generic message; the detail stays in the logs.
func respondError(c *gin.Context, err error) {
	status := statusForKind(workflow.KindOf(err))
	if status == http.StatusInternalServerError {
		fields := logrus.Fields{"path": c.FullPath()}
		if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok && cid != "" {
			fields["correlation_id"] = cid
		}
		config.GetLogger().WithFields(fields).Error(err.Error())
	}
	c.JSON(status, gin.H{"error": workflow.MessageOf(err)})
}
