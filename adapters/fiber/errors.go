package fiber

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/reel"
)

// statusFor pairs each client-facing sentinel with its status. Order matters
// when an error matches more than one.
var statusFor = []struct {
	err    error
	status int
}{
	{reel.ErrValidation, http.StatusBadRequest},
	{reel.ErrInvalidBody, http.StatusBadRequest},
	{reel.ErrInvalidCode, http.StatusBadRequest},

	{reel.ErrInvalidCredentials, http.StatusUnauthorized},
	{reel.ErrMissingAuthHeader, http.StatusUnauthorized},
	{reel.ErrTokenExpired, http.StatusUnauthorized},
	{reel.ErrInvalidToken, http.StatusUnauthorized},

	{reel.ErrAccountNotFound, http.StatusNotFound},
	{reel.ErrMovieNotFound, http.StatusNotFound},
	{reel.ErrActorNotFound, http.StatusNotFound},

	{reel.ErrEmailTaken, http.StatusConflict},
	{reel.ErrActorInUse, http.StatusConflict},

	{reel.ErrUnavailable, http.StatusServiceUnavailable},
}

// writeError maps err to a status and an ErrorResponse. Server-side
// failures are logged and answered without detail.
func writeError(c fiber.Ctx, err error) error {
	resp := reel.ErrorResponse{}
	status := http.StatusInternalServerError

	var ve *reel.ValidationError
	var fe *fiber.Error

	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		resp.Message = reel.ErrValidation.Error()
		resp.Errors = ve.Fields
	case errors.As(err, &fe):
		status = fe.Code
		resp.Message = fe.Message
	default:
		for _, s := range statusFor {
			if errors.Is(err, s.err) {
				status = s.status
				resp.Message = s.err.Error()
				break
			}
		}
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Context(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
		if status == http.StatusServiceUnavailable {
			resp.Message = reel.ErrUnavailable.Error()
		} else {
			resp.Message = reel.ErrInternal.Error()
		}
		resp.Errors = nil
	}

	return c.Status(status).JSON(resp)
}

// ErrorHandler answers errors that escape handlers, such as unknown routes
// and panics recovered by middleware, with the same body shape.
func ErrorHandler(c fiber.Ctx, err error) error {
	return writeError(c, err)
}
