package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/service"
)

// Health reports liveness and whether the remote store is attached.
func Health(svc *service.BookingService) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := "offline"
		if svc.Online() {
			mode = "online"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "remote": mode})
	}
}
