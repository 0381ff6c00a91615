package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/example/contacts-api/config"
	v1 "github.com/example/contacts-api/internal/adapters/http/api/v1"
	internalhttp "github.com/example/contacts-api/internal/adapters/http/internal"
)

type Router struct {
	cfg       *config.Config
	apiRouter *v1.Router
	ready     internalhttp.ReadyFunc
}

func NewRouter(cfg *config.Config, apiRouter *v1.Router, ready internalhttp.ReadyFunc) *Router {
	return &Router{cfg: cfg, apiRouter: apiRouter, ready: ready}
}

func (r *Router) Setup(e *echo.Echo) {
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
	}))

	internalhttp.Register(e.Group(""), r.ready)
	apiGroup := e.Group(r.cfg.HTTPBasePath)
	r.apiRouter.Register(apiGroup)
}
