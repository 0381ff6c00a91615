package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/example/contacts-api/internal/domain"
	"github.com/example/contacts-api/internal/usecase"
	res "github.com/example/contacts-api/pkg/http"
)

const currentUserKey = "current_user"
const bearerTokenKey = "bearer_token"

type AuthMiddleware struct {
	auth usecase.AuthService
}

func NewAuthMiddleware(auth usecase.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Handler resolves the bearer access token to a trusted user identity and
// stores it on the request context for downstream handlers.
func (m *AuthMiddleware) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return res.ErrorJSON(c, http.StatusUnauthorized, "unauthorized", "missing token", requestIDFromCtx(c), nil)
		}
		user, err := m.auth.CurrentUser(c.Request().Context(), tokenStr)
		if err != nil {
			return res.ErrorJSON(c, http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error(), requestIDFromCtx(c), nil)
		}
		c.Set(currentUserKey, user)
		c.Set(bearerTokenKey, tokenStr)
		return next(c)
	}
}

// CurrentUser returns the identity resolved by Handler. It panics when called
// from an unprotected route, which is a programming error.
func CurrentUser(c echo.Context) *domain.User {
	return c.Get(currentUserKey).(*domain.User)
}

// BearerToken returns the raw access token accepted by Handler.
func BearerToken(c echo.Context) string {
	token, _ := c.Get(bearerTokenKey).(string)
	return token
}

func bearerToken(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func requestIDFromCtx(c echo.Context) string {
	if reqID := c.Response().Header().Get(echo.HeaderXRequestID); reqID != "" {
		return reqID
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
