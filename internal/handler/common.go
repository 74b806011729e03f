package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/log"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

var errUnauthorized = errors.New("unauthorized")

// respondError maps service errors to a status code and {"error": ...}.
func respondError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, errUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrChangeOrphaned):
		log.FromContext(c.Request().Context()).WithError(err).Error("ticket change left no ticket")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrChangeFailed),
		errors.Is(err, service.ErrSeatsUnavailable),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrTitleTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	log.FromContext(c.Request().Context()).WithError(err).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// sessionUser rebuilds the caller from the token claims JWTAuth stored.
// Guests exist only in their token; everyone else must still be known.
func sessionUser(c echo.Context, svc *service.BookingService) (*model.User, error) {
	id, _ := c.Get(middleware.CtxUserID).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	if id == "" {
		return nil, errUnauthorized
	}
	if model.Role(role) == model.RoleGuest {
		return &model.User{ID: id, FirstName: "Guest", Role: model.RoleGuest}, nil
	}
	u, ok := svc.UserByID(id)
	if !ok {
		return nil, errUnauthorized
	}
	return u, nil
}

// parseSeats turns labels such as "A1" into seat keys.
func parseSeats(labels []string) ([]model.SeatKey, error) {
	if len(labels) == 0 {
		return nil, &service.ValidationError{Fields: map[string]string{"seats": "at least one seat is required"}}
	}
	keys, err := model.ParseSeatLabels(labels)
	if err != nil {
		return nil, &service.ValidationError{Fields: map[string]string{"seats": err.Error()}}
	}
	return keys, nil
}

// queryDay reads ?date=YYYY-MM-DD, defaulting to today.
func queryDay(c echo.Context, now time.Time) (time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return model.DateOf(now), nil
	}
	day, err := model.ParseDate(raw)
	if err != nil {
		return time.Time{}, &service.ValidationError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}
	}
	return day, nil
}
