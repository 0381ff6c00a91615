package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/example/contacts-api/internal/adapters/http/middleware"
	"github.com/example/contacts-api/internal/usecase"
	res "github.com/example/contacts-api/pkg/http"
)

type UserHandler struct {
	service usecase.UserService
}

func NewUserHandler(s usecase.UserService) *UserHandler { return &UserHandler{service: s} }

func (h *UserHandler) Me(c echo.Context) error {
	return res.JSON(c, http.StatusOK, authmw.CurrentUser(c))
}

func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "unreadable file")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	user, err := h.service.UpdateAvatar(c.Request().Context(), authmw.CurrentUser(c), fileHeader.Filename, contentType, file)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, user)
}
