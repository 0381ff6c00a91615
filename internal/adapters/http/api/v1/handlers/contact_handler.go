package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/example/contacts-api/internal/adapters/http/middleware"
	repo "github.com/example/contacts-api/internal/adapters/postgres"
	"github.com/example/contacts-api/internal/domain"
	"github.com/example/contacts-api/internal/usecase"
	res "github.com/example/contacts-api/pkg/http"
)

const maxPageSize = 500

type ContactHandler struct {
	service usecase.ContactService
}

func NewContactHandler(s usecase.ContactService) *ContactHandler {
	return &ContactHandler{service: s}
}

type contactRequest struct {
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Birthday    time.Time `json:"birthday"`
	Description string    `json:"description"`
	Favorites   bool      `json:"favorites"`
}

func (r *contactRequest) validate() string {
	switch {
	case r.FirstName == "" || len(r.FirstName) > 50:
		return "first_name must be 1-50 characters"
	case r.LastName == "" || len(r.LastName) > 50:
		return "last_name must be 1-50 characters"
	case r.Email == "":
		return "email required"
	case r.Birthday.IsZero():
		return "birthday required"
	case len(r.Description) > 150:
		return "description too long"
	}
	return ""
}

func (r *contactRequest) toDomain() *domain.Contact {
	return &domain.Contact{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		Birthday:    r.Birthday,
		Description: r.Description,
		Favorites:   r.Favorites,
	}
}

func (h *ContactHandler) List(c echo.Context) error {
	limit, offset := pagination(c)
	filter := repo.ContactFilter{
		FirstName: c.QueryParam("first_name"),
		LastName:  c.QueryParam("last_name"),
		Email:     c.QueryParam("email"),
	}
	contacts, err := h.service.List(c.Request().Context(), authmw.CurrentUser(c), filter, limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, contacts)
}

func (h *ContactHandler) UpcomingBirthdays(c echo.Context) error {
	limit, offset := pagination(c)
	contacts, err := h.service.UpcomingBirthdays(c.Request().Context(), authmw.CurrentUser(c), limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, contacts)
}

func (h *ContactHandler) Get(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return badRequest(c, "invalid contact id")
	}
	contact, err := h.service.Get(c.Request().Context(), authmw.CurrentUser(c), id)
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, contact)
}

func (h *ContactHandler) Create(c echo.Context) error {
	req := new(contactRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	contact := req.toDomain()
	if err := h.service.Create(c.Request().Context(), authmw.CurrentUser(c), contact); err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusCreated, contact)
}

func (h *ContactHandler) Update(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return badRequest(c, "invalid contact id")
	}
	req := new(contactRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	contact, err := h.service.Update(c.Request().Context(), authmw.CurrentUser(c), id, req.toDomain())
	if err != nil {
		return errorJSON(c, err)
	}
	return res.JSON(c, http.StatusOK, contact)
}

func (h *ContactHandler) Delete(c echo.Context) error {
	id, err := contactID(c)
	if err != nil {
		return badRequest(c, "invalid contact id")
	}
	if err := h.service.Delete(c.Request().Context(), authmw.CurrentUser(c), id); err != nil {
		return errorJSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func contactID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}

func pagination(c echo.Context) (limit, offset int) {
	limit = 10
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
