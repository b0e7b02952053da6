package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Error implements error.
func (e ErrorResponse) Error() string {
	return e.Message
}

// Respond writes body as JSON with status.
func Respond(c *fiber.Ctx, status int, body any) error {
	return c.Status(status).JSON(body)
}

// RespondError writes an ErrorResponse.
func RespondError(c *fiber.Ctx, status int, title, message string) error {
	return Respond(c, status, ErrorResponse{Code: status, Title: title, Message: message})
}

// RenderError maps err to a response. Validation failures become 400, fiber
// errors keep their status, everything else is a 500 without details.
func RenderError(c *fiber.Ctx, err error) error {
	var resp ErrorResponse
	if errors.As(err, &resp) {
		return Respond(c, resp.Code, resp)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return RespondError(c, fe.Code, "request_error", fe.Message)
	}

	if isClientError(err) {
		return RespondError(c, fiber.StatusBadRequest, "invalid_request", err.Error())
	}

	return RespondError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

var clientErrors = []error{
	ErrValidationFailed,
	ErrFieldRequired,
	ErrFieldMaxLength,
	ErrFieldGreaterThanOrEqual,
	ErrFieldLessThanOrEqual,
	ErrFieldOneOf,
	ErrFieldMetricName,
	ErrBodyParseFailed,
}

func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
