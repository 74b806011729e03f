package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterTickets registers ticket endpoints under /v1. Every caller needs a
// token; guests included. Writes that reserve seats pass through limit,
// which keys on the authenticated user so it runs after JWTAuth.
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleGuest, model.RoleRegular, model.RoleCashier, model.RoleAdmin),
	)
	g.POST("/tickets", h.Book, limit)
	g.GET("/me/tickets", h.MyTickets)
	g.GET("/tickets/:id", h.Get)
	g.GET("/tickets/:id/qr", h.QR)
	g.DELETE("/tickets/:id", h.Cancel)
	g.POST("/tickets/:id/change", h.Change, limit)

	// Counter and door operations.
	staff := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCashier, model.RoleAdmin),
	)
	staff.POST("/counter/tickets", h.SellAtCounter, limit)
	staff.POST("/tickets/:id/use", h.MarkUsed)
	staff.GET("/screenings/:id/tickets", h.ForScreening)
}
