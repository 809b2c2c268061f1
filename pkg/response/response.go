// Package response standardizes the JSON envelope every handler returns.
package response

import "github.com/gofiber/fiber/v2"

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(data)
}

func Accepted(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(data)
}

func ValidationError(c *fiber.Ctx, message string, details interface{}) error {
	return errorJSON(c, fiber.StatusBadRequest, "VALIDATION_ERROR", message, details)
}

func InvalidTimeline(c *fiber.Ctx, message string) error {
	return errorJSON(c, fiber.StatusUnprocessableEntity, "INVALID_TIMELINE", message, nil)
}

func QuotaExceeded(c *fiber.Ctx, message string) error {
	return errorJSON(c, fiber.StatusPaymentRequired, "QUOTA_EXCEEDED", message, nil)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return errorJSON(c, fiber.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func NotFound(c *fiber.Ctx, message string) error {
	return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND", message, nil)
}

func RateLimited(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
}

func ServiceError(c *fiber.Ctx, message string) error {
	return errorJSON(c, fiber.StatusInternalServerError, "SERVICE_ERROR", message, nil)
}

func errorJSON(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
