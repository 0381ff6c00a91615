package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/example/contacts-api/internal/domain"
	res "github.com/example/contacts-api/pkg/http"
)

func requestIDFromCtx(c echo.Context) string {
	if reqID := c.Response().Header().Get(echo.HeaderXRequestID); reqID != "" {
		return reqID
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// errorJSON maps a domain error to its stable machine code and HTTP status.
// Anything outside the taxonomy is an internal failure and stays opaque.
func errorJSON(c echo.Context, err error) error {
	traceID := requestIDFromCtx(c)
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return res.ErrorJSON(c, http.StatusConflict, "duplicate_email", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrDuplicateUsername):
		return res.ErrorJSON(c, http.StatusConflict, "duplicate_username", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrUnknownUser), errors.Is(err, domain.ErrBadPassword):
		return res.ErrorJSON(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", traceID, nil)
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		return res.ErrorJSON(c, http.StatusUnauthorized, "email_not_confirmed", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrInvalidRefreshToken):
		return res.ErrorJSON(c, http.StatusUnauthorized, "invalid_refresh_token", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return res.ErrorJSON(c, http.StatusUnauthorized, "unauthorized", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrVerification):
		return res.ErrorJSON(c, http.StatusBadRequest, "verification_error", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrPasswordMismatch):
		return res.ErrorJSON(c, http.StatusUnprocessableEntity, "password_mismatch", err.Error(), traceID, nil)
	case errors.Is(err, domain.ErrNotFound):
		return res.ErrorJSON(c, http.StatusNotFound, "not_found", err.Error(), traceID, nil)
	default:
		return res.ErrorJSON(c, http.StatusInternalServerError, "internal_error", "internal error", traceID, nil)
	}
}

func badRequest(c echo.Context, message string) error {
	return res.ErrorJSON(c, http.StatusBadRequest, "bad_request", message, requestIDFromCtx(c), nil)
}
