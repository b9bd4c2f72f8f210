package identity

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPStatus maps an error onto the status code clients receive.
func HTTPStatus(err error) int {
	if err == nil {
		return fiber.StatusOK
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return fiber.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders errors as {"error": "..."} for a fiber app.
// Internal failure detail is only exposed when debug is set.
func ErrorHandler(logger Logger, debug bool) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		status := HTTPStatus(err)
		message := err.Error()

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			message = richErr.Message
			if secs, ok := richErr.Metadata[MetadataRetryAfter].(int); ok {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			if richErr != nil {
				logger.Debug("request failed details", "details", print.MaybePrettyJSON(richErr.Metadata))
			}
			if !debug {
				message = "internal server error"
			} else {
				message = err.Error()
			}
		}

		return c.Status(status).JSON(ErrorResponse{Error: message})
	}
}
