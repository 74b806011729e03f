package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// AdminHandler manages the catalog and staff accounts. Only admins reach it.
type AdminHandler struct {
	Svc *service.BookingService
}

func NewAdminHandler(svc *service.BookingService) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Svc: svc}
}

type screeningReq struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Hall  string `json:"hall"`
	Price string `json:"price"`
}

// input converts the wire form; date and price syntax are checked here, the
// rest by the service.
func (r screeningReq) input() (service.ScreeningInput, error) {
	fields := map[string]string{}
	day, err := model.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		fields["date"] = "must be YYYY-MM-DD"
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		fields["price"] = "must be a decimal amount"
	}
	if len(fields) > 0 {
		return service.ScreeningInput{}, &service.ValidationError{Fields: fields}
	}
	return service.ScreeningInput{
		Date:  day,
		Start: strings.TrimSpace(r.Start),
		End:   strings.TrimSpace(r.End),
		Hall:  strings.TrimSpace(r.Hall),
		Price: price,
	}, nil
}

type movieReq struct {
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Genre           string       `json:"genre"`
	DurationMinutes int          `json:"duration_minutes"`
	PosterRef       string       `json:"poster_ref"`
	Rating          string       `json:"rating"`
	Screening       screeningReq `json:"screening"`
}

type userReq struct {
	service.Registration
	Role string `json:"role"`
}

// CreateMovie handles POST /v1/admin/movies. A movie comes with its first
// screening.
func (h *AdminHandler) CreateMovie(c echo.Context) error {
	var body movieReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	sc, err := body.Screening.input()
	if err != nil {
		return respondError(c, err)
	}
	m, err := h.Svc.AddMovie(c.Request().Context(), service.MovieInput{
		Title:           body.Title,
		Description:     body.Description,
		Genre:           body.Genre,
		DurationMinutes: body.DurationMinutes,
		PosterRef:       body.PosterRef,
		Rating:          body.Rating,
		Screening:       sc,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newMovieView(m, m.Screenings()))
}

// AddScreening handles POST /v1/admin/movies/:id/screenings.
func (h *AdminHandler) AddScreening(c echo.Context) error {
	var body screeningReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, err := body.input()
	if err != nil {
		return respondError(c, err)
	}
	sc, err := h.Svc.AddScreeningToMovie(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newScreeningView(sc))
}

// DeleteMovie handles DELETE /v1/admin/movies/:id. Screenings and their
// tickets go with it.
func (h *AdminHandler) DeleteMovie(c echo.Context) error {
	if !h.Svc.DeleteMovie(c.Request().Context(), c.Param("id")) {
		return respondError(c, service.ErrMovieNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteScreening handles DELETE /v1/admin/screenings/:id.
func (h *AdminHandler) DeleteScreening(c echo.Context) error {
	if !h.Svc.DeleteScreening(c.Request().Context(), c.Param("id")) {
		return respondError(c, service.ErrScreeningNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users := h.Svc.AllUsers(c.Request().Context())
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// CreateUser handles POST /v1/admin/users. Role defaults to REGULAR_USER.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var body userReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	u, err := h.Svc.AddUser(c.Request().Context(), body.Registration, model.ParseRole(body.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newUserView(u))
}

// DeleteUser handles DELETE /v1/admin/users/:email. The user's tickets stay
// valid.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}
	if !h.Svc.DeleteUser(c.Request().Context(), email) {
		return respondError(c, service.ErrUserNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}
