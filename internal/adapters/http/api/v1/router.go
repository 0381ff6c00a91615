package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/example/contacts-api/internal/adapters/http/api/v1/handlers"
	mw "github.com/example/contacts-api/internal/adapters/http/middleware"
)

type Router struct {
	auth     *handlers.AuthHandler
	contacts *handlers.ContactHandler
	users    *handlers.UserHandler
	authMW   echo.MiddlewareFunc
	limiter  mw.Limiter
}

func NewRouter(auth *handlers.AuthHandler, contacts *handlers.ContactHandler, users *handlers.UserHandler, authMW echo.MiddlewareFunc, limiter mw.Limiter) *Router {
	return &Router{auth: auth, contacts: contacts, users: users, authMW: authMW, limiter: limiter}
}

func (r *Router) Register(g *echo.Group) {
	auth := g.Group("/auth")
	auth.POST("/signup", r.auth.Signup, mw.RateLimit(r.limiter, "signup"))
	auth.POST("/login", r.auth.Login)
	auth.GET("/refresh_token", r.auth.Refresh)
	auth.GET("/confirmed_email/:token", r.auth.ConfirmEmail)
	auth.POST("/verify_by_email", r.auth.ResendConfirmation)
	auth.POST("/forgot_password", r.auth.ForgotPassword)
	auth.GET("/reset_password_template/:token", r.auth.ResetPasswordForm)
	auth.POST("/reset_password/:token", r.auth.ResetPassword)
	auth.POST("/logout", r.auth.Logout, r.authMW)

	users := g.Group("/users", r.authMW)
	users.GET("/me", r.users.Me)
	users.PATCH("/avatar", r.users.UpdateAvatar)

	contacts := g.Group("/contacts", r.authMW)
	contacts.GET("", r.contacts.List)
	contacts.GET("/upcoming_birthdays", r.contacts.UpcomingBirthdays)
	contacts.GET("/:id", r.contacts.Get)
	contacts.POST("", r.contacts.Create, mw.RateLimit(r.limiter, "contact_create"))
	contacts.PUT("/:id", r.contacts.Update)
	contacts.DELETE("/:id", r.contacts.Delete)
}
