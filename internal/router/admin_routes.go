package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// RegisterAdmin registers catalog and account management under /v1/admin.
// All routes require the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/movies", h.CreateMovie)
	g.POST("/movies/:id/screenings", h.AddScreening)
	g.DELETE("/movies/:id", h.DeleteMovie)
	g.DELETE("/screenings/:id", h.DeleteScreening)

	g.GET("/users", h.ListUsers)
	g.POST("/users", h.CreateUser)
	g.DELETE("/users/:email", h.DeleteUser)
}
