package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authmw "github.com/example/contacts-api/internal/adapters/http/middleware"
	"github.com/example/contacts-api/internal/usecase"
	res "github.com/example/contacts-api/pkg/http"
)

type AuthHandler struct {
	service usecase.AuthService
}

func NewAuthHandler(s usecase.AuthService) *AuthHandler { return &AuthHandler{service: s} }

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type requestEmail struct {
	Email string `json:"email"`
}

func (r *signupRequest) validate() string {
	switch {
	case !strings.Contains(r.Email, "@") || len(r.Email) > 150:
		return "invalid email"
	case len(r.Username) < 6 || len(r.Username) > 25:
		return "username must be 6-25 characters"
	case len(r.Password) < 6 || len(r.Password) > 20:
		return "password must be 6-20 characters"
	}
	return ""
}

func (h *AuthHandler) Signup(c echo.Context) error {
	req := new(signupRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	user, err := h.service.Register(c.Request().Context(), requestIDFromCtx(c), req.Email, req.Username, req.Password)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusCreated, map[string]interface{}{
		"user":   user,
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	tokens, err := h.service.Login(c.Request().Context(), requestIDFromCtx(c), req.Email, req.Password)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, tokens)
}

// Refresh exchanges a bearer refresh token for a fresh pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	tokenStr, ok := bearerToken(c)
	if !ok {
		return res.ErrorJSON(c, http.StatusUnauthorized, "invalid_refresh_token", "missing token", requestIDFromCtx(c), nil)
	}
	tokens, err := h.service.Refresh(c.Request().Context(), requestIDFromCtx(c), tokenStr)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, tokens)
}

func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	already, err := h.service.ConfirmEmail(c.Request().Context(), requestIDFromCtx(c), c.Param("token"))
	if err != nil {
		return errorJSON(c, err)
	}
	if already {
		return res.Message(c, http.StatusOK, "Your email is already confirmed")
	}
	return res.Message(c, http.StatusOK, "Email confirmed")
}

func (h *AuthHandler) ResendConfirmation(c echo.Context) error {
	req := new(requestEmail)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	already, err := h.service.ResendConfirmation(c.Request().Context(), requestIDFromCtx(c), req.Email)
	if err != nil {
		return errorJSON(c, err)
	}
	if already {
		return res.Message(c, http.StatusOK, "Your email is already confirmed")
	}
	return res.Message(c, http.StatusAccepted, "Check your email for confirmation.")
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	req := new(requestEmail)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := h.service.ForgotPassword(c.Request().Context(), requestIDFromCtx(c), req.Email); err != nil {
		return errorJSON(c, err)
	}
	return res.Message(c, http.StatusAccepted, "Check your email for reset password.")
}

// resetFormPage is the page behind the emailed reset link. The relative form
// action resolves to the reset endpoint under the same base path.
const resetFormPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Reset password</title></head>
<body>
<h1>Reset your password</h1>
<form method="post" action="../reset_password/%s">
<p><label>New password <input type="password" name="new_password" minlength="6" maxlength="20" required></label></p>
<p><label>Confirm password <input type="password" name="confirm_password" minlength="6" maxlength="20" required></label></p>
<p><button type="submit">Reset password</button></p>
</form>
</body>
</html>`

// ResetPasswordForm serves the form the reset mail links to. A dead token is
// rejected here so the user learns before typing a new password.
func (h *AuthHandler) ResetPasswordForm(c echo.Context) error {
	tokenStr := c.Param("token")
	if err := h.service.ValidateResetToken(c.Request().Context(), tokenStr); err != nil {
		return errorJSON(c, err)
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(resetFormPage, tokenStr))
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	newPassword := c.FormValue("new_password")
	confirmPassword := c.FormValue("confirm_password")
	err := h.service.ResetPassword(c.Request().Context(), requestIDFromCtx(c), c.Param("token"), newPassword, confirmPassword)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.Message(c, http.StatusOK, "Password reset successfully")
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), requestIDFromCtx(c), authmw.BearerToken(c)); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func bearerToken(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
