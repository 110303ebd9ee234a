// Package response renders the JSON envelope shared by every endpoint.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the body of every JSON response. Data, when present, is always
// a list.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    []any  `json:"data,omitempty"`
}

// OK writes a successful envelope. Data is omitted when items is empty.
func OK(c *fiber.Ctx, message string, items ...any) error {
	return c.Status(http.StatusOK).JSON(Envelope{Success: true, Message: message, Data: items})
}

// Fail writes a failed envelope with the given status.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{Success: false, Message: message})
}

// ErrorHandler turns errors escaping handlers and middleware into envelopes.
// Messages of non-fiber errors are never sent to the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Fail(c, fe.Code, fe.Message)
		}
		logger.Error("unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
		return Fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
