package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sqerrors "github.com/sitequery/sitequery/internal/errors"
)

// errorEnvelope is the shared error response shape.
type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"requestId,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(kind sqerrors.Kind) int {
	switch kind {
	case sqerrors.KindValidation:
		return http.StatusBadRequest
	case sqerrors.KindTimeout:
		return http.StatusGatewayTimeout
	case sqerrors.KindDependencyDegraded, sqerrors.KindDependencyFatal:
		return http.StatusServiceUnavailable
	case sqerrors.KindNotFound:
		return http.StatusNotFound
	case sqerrors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure renders any pipeline error through the envelope.
func respondFailure(c *gin.Context, err error) {
	var e *sqerrors.Error
	if !errors.As(err, &e) {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error(), nil)
		return
	}
	respondError(c, statusFor(e.Kind), e.Code, e.Message, e.Details)
}

func respondError(c *gin.Context, status int, code, message string, details map[string]string) {
	c.JSON(status, errorEnvelope{
		Success: false,
		Error: errorBody{
			Code:      code,
			Message:   message,
			RequestID: c.GetString(requestIDKey),
			Details:   details,
		},
	})
}
