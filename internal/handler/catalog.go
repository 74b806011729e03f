package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/service"
)

// CatalogHandler serves the public movie and screening listings. No token
// is needed.
type CatalogHandler struct {
	Svc *service.BookingService
	Now func() time.Time
}

func NewCatalogHandler(svc *service.BookingService) *CatalogHandler {
	if svc == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Svc: svc, Now: time.Now}
}

// ListMovies handles GET /v1/movies?date=YYYY-MM-DD. Each movie carries only
// the screenings of that day.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	day, err := queryDay(c, h.Now())
	if err != nil {
		return respondError(c, err)
	}
	movies := h.Svc.MoviesWithScreeningsOn(c.Request().Context(), day)
	out := make([]movieView, 0, len(movies))
	for _, m := range movies {
		out = append(out, newMovieView(m, m.ScreeningsOn(day)))
	}
	return c.JSON(http.StatusOK, echo.Map{"date": day.Format("2006-01-02"), "movies": out})
}

// GetMovie handles GET /v1/movies/:id with all of its screenings.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	m, err := h.Svc.Movie(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newMovieView(m, m.Screenings()))
}

// ListScreenings handles GET /v1/screenings?date=YYYY-MM-DD.
func (h *CatalogHandler) ListScreenings(c echo.Context) error {
	day, err := queryDay(c, h.Now())
	if err != nil {
		return respondError(c, err)
	}
	list := h.Svc.ScreeningsOn(c.Request().Context(), day)
	return c.JSON(http.StatusOK, echo.Map{"date": day.Format("2006-01-02"), "screenings": screeningViews(list)})
}

// SeatMap handles GET /v1/screenings/:id/seats. Seat states change with
// every sale so this route is never cached.
func (h *CatalogHandler) SeatMap(c echo.Context) error {
	sc, err := h.Svc.Screening(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	seats, err := h.Svc.SeatMap(sc.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"screening":     newScreeningView(sc),
		"rows":          sc.Grid.Rows(),
		"seats_per_row": sc.Grid.SeatsPerRow(),
		"seats":         seats,
	})
}
