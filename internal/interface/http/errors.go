package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-anon-feedback/internal/application"
	"github.com/oksasatya/go-anon-feedback/pkg/response"
	"github.com/oksasatya/go-anon-feedback/pkg/validation"
)

const internalMessage = "internal server error"

var kindStatus = []struct {
	kind   error
	status int
}{
	{application.ErrValidation, http.StatusBadRequest},
	{application.ErrUnauthenticated, http.StatusUnauthorized},
	{application.ErrInvalidCredentials, http.StatusUnauthorized},
	{application.ErrUnverified, http.StatusForbidden},
	{application.ErrForbidden, http.StatusForbidden},
	{application.ErrRejected, http.StatusForbidden},
	{application.ErrNotFound, http.StatusNotFound},
	{application.ErrConflict, http.StatusBadRequest},
	{application.ErrInvalidCode, http.StatusBadRequest},
}

// statusFor maps an application error kind onto an HTTP status; 0 means internal.
func statusFor(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return 0
}

// respondError renders err in the response envelope. Client errors carry
// their message; anything else is logged and answered with a generic 500.
// validationStatus overrides the status of validation failures when non-zero.
func respondError(c *gin.Context, logger *logrus.Logger, err error, validationStatus int) {
	var appErr *application.Error
	if status := statusFor(err); status != 0 && errors.As(err, &appErr) {
		if validationStatus != 0 && errors.Is(err, application.ErrValidation) {
			status = validationStatus
		}
		var details any
		if appErr.Details != nil {
			details = appErr.Details
		}
		response.Error[any](c, status, appErr.Error(), details)
		return
	}

	message := internalMessage
	if errors.Is(err, application.ErrExportUnavailable) {
		message = err.Error()
	}
	if logger != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"route":      c.FullPath(),
		}).Error("request failed")
	}
	response.Error[any](c, http.StatusInternalServerError, message, nil)
}

// bindFailed answers a payload or query binding error.
func bindFailed(c *gin.Context, err error, status int) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	response.Error[any](c, status, "invalid payload", validation.ToDetails(err))
}
