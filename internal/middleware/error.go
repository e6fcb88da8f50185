package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/clinicore/scheduler-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    int            `json:"code"`
	Kind    apperrors.Kind `json:"kind,omitempty"`
	Message string         `json:"message"`
	TraceID string         `json:"trace_id,omitempty"`
}

// ErrorHandler turns errors attached to the gin context into the standard
// error envelope. AppErrors carry their own status code and kind; anything
// else is a 500 with the detail kept out of the response body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last()

		status := http.StatusInternalServerError
		kind := apperrors.KindInternal
		message := "internal server error"

		var appErr *apperrors.AppError
		if errors.As(lastErr.Err, &appErr) {
			status = appErr.StatusCode()
			kind = appErr.Kind
			message = appErr.Message
		}

		logEvent := log.Warn()
		if status >= 500 {
			logEvent = log.Error()
		}
		logEvent.
			Err(lastErr.Err).
			Str("trace_id", traceID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("request error")

		c.JSON(status, ErrorResponse{
			Code:    status,
			Kind:    kind,
			Message: message,
			TraceID: traceID,
		})
	}
}
