// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Response is the JSON body written for every failed request.
type Response struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ErrorHandler renders errors returned by fiber handlers.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle satisfies fiber.ErrorHandler.
func (h *ErrorHandler) Handle(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return c.Status(fe.Code).JSON(Response{
			Code:    "HTTP_ERROR",
			Message: fe.Message,
		})
	}

	stdErr := Normalize(err)
	status := stdErr.HTTPStatus()
	h.logError(c, stdErr, status)

	return c.Status(status).JSON(Response{
		Code:      string(stdErr.Code),
		Message:   stdErr.UserMessage(),
		Retryable: stdErr.Retryable,
		Metadata:  stdErr.Metadata,
	})
}

func (h *ErrorHandler) logError(c *fiber.Ctx, stdErr *StandardError, status int) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"method":        c.Method(),
		"path":          c.Path(),
		"status":        status,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if status >= 500 {
		h.logger.Error("request failed", fields)
		return
	}
	h.logger.Warn("request rejected", fields)
}
