package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// AuthHandler issues access tokens for registered users and guests.
type AuthHandler struct {
	Cfg config.Config
	Svc *service.BookingService
}

func NewAuthHandler(cfg config.Config, svc *service.BookingService) *AuthHandler {
	if svc == nil {
		panic("nil service passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Svc: svc}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User        userView  `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login: POST /v1/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	u, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return respondError(c, err)
	}
	return h.issue(c, http.StatusOK, u)
}

// Register: POST /v1/auth/register. Creates a regular account and signs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.Registration
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	u, err := h.Svc.RegisterUser(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return h.issue(c, http.StatusCreated, u)
}

// Guest: POST /v1/auth/guest. The guest only lives inside the token.
func (h *AuthHandler) Guest(c echo.Context) error {
	return h.issue(c, http.StatusCreated, h.Svc.LoginAsGuest())
}

func (h *AuthHandler) issue(c echo.Context, status int, u *model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), u.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(status, authResp{User: newUserView(u), AccessToken: access.Token, ExpiresAt: access.Exp})
}
