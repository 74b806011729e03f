package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// qrSize is the edge length in pixels of ticket QR codes.
const qrSize = 256

// TicketHandler serves booking, listing, cancelling and changing tickets
// for any signed-in caller, guests included, plus the counter operations
// of cashiers and admins. JWTAuth must have run.
type TicketHandler struct {
	Svc *service.BookingService
}

func NewTicketHandler(svc *service.BookingService) *TicketHandler {
	if svc == nil {
		panic("nil service passed to NewTicketHandler")
	}
	return &TicketHandler{Svc: svc}
}

type bookReq struct {
	ScreeningID string   `json:"screening_id"`
	Seats       []string `json:"seats"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
}

func (r bookReq) ticketRequest() (service.TicketRequest, error) {
	if strings.TrimSpace(r.ScreeningID) == "" {
		return service.TicketRequest{}, &service.ValidationError{Fields: map[string]string{"screening_id": "is required"}}
	}
	keys, err := parseSeats(r.Seats)
	if err != nil {
		return service.TicketRequest{}, err
	}
	return service.TicketRequest{ScreeningID: r.ScreeningID, Seats: keys, FirstName: r.FirstName, LastName: r.LastName}, nil
}

type changeReq struct {
	ScreeningID string   `json:"screening_id"`
	Seats       []string `json:"seats"`
}

// Book handles POST /v1/tickets. Registered users own the ticket; guests
// must give the customer's name.
func (h *TicketHandler) Book(c echo.Context) error {
	user, err := sessionUser(c, h.Svc)
	if err != nil {
		return respondError(c, err)
	}
	var body bookReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req, err := body.ticketRequest()
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.Svc.CreateTicket(c.Request().Context(), user, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newTicketView(t))
}

// MyTickets handles GET /v1/me/tickets.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	user, err := sessionUser(c, h.Svc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": ticketViews(h.Svc.CurrentUserTickets(user))})
}

// Get handles GET /v1/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.visible(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newTicketView(t))
}

// QR handles GET /v1/tickets/:id/qr and returns a PNG the door scans.
func (h *TicketHandler) QR(c echo.Context) error {
	t, err := h.visible(c)
	if err != nil {
		return respondError(c, err)
	}
	png, err := qrcode.Encode(qrPayload(t), qrcode.Medium, qrSize)
	if err != nil {
		return respondError(c, fmt.Errorf("encode qr: %w", err))
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Cancel handles DELETE /v1/tickets/:id.
func (h *TicketHandler) Cancel(c echo.Context) error {
	t, err := h.managed(c)
	if err != nil {
		return respondError(c, err)
	}
	if !h.Svc.CancelTicket(c.Request().Context(), t.ID) {
		return respondError(c, service.ErrTicketNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// Change handles POST /v1/tickets/:id/change.
func (h *TicketHandler) Change(c echo.Context) error {
	t, err := h.managed(c)
	if err != nil {
		return respondError(c, err)
	}
	var body changeReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	keys, err := parseSeats(body.Seats)
	if err != nil {
		return respondError(c, err)
	}
	screeningID := body.ScreeningID
	if screeningID == "" {
		screeningID = t.ScreeningID
	}
	res, err := h.Svc.ChangeTicket(c.Request().Context(), t.ID, screeningID, keys)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"from": newTicketView(res.Previous), "to": newTicketView(res.Ticket)})
}

// SellAtCounter handles POST /v1/counter/tickets. The customer's name is
// required and the ticket has no owner.
func (h *TicketHandler) SellAtCounter(c echo.Context) error {
	var body bookReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req, err := body.ticketRequest()
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.Svc.CreateTicketForCustomer(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, newTicketView(t))
}

// MarkUsed handles POST /v1/tickets/:id/use.
func (h *TicketHandler) MarkUsed(c echo.Context) error {
	id := c.Param("id")
	if !h.Svc.MarkUsed(c.Request().Context(), id) {
		return respondError(c, service.ErrTicketNotFound)
	}
	t, err := h.Svc.Ticket(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, newTicketView(t))
}

// ForScreening handles GET /v1/screenings/:id/tickets.
func (h *TicketHandler) ForScreening(c echo.Context) error {
	sc, err := h.Svc.Screening(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"screening_id": sc.ID, "tickets": ticketViews(h.Svc.TicketsForScreening(sc.ID))})
}

// visible loads the ticket named in the path if the caller may read it.
func (h *TicketHandler) visible(c echo.Context) (*model.Ticket, error) {
	user, err := sessionUser(c, h.Svc)
	if err != nil {
		return nil, err
	}
	t, err := h.Svc.Ticket(c.Param("id"))
	if err != nil {
		return nil, err
	}
	if service.CanView(user, t) {
		return t, nil
	}
	return nil, service.ErrForbidden
}

// managed loads the ticket named in the path if the caller may cancel or
// change it.
func (h *TicketHandler) managed(c echo.Context) (*model.Ticket, error) {
	user, err := sessionUser(c, h.Svc)
	if err != nil {
		return nil, err
	}
	t, err := h.Svc.Ticket(c.Param("id"))
	if err != nil {
		return nil, err
	}
	if !service.CanManage(user, t) {
		return nil, service.ErrForbidden
	}
	return t, nil
}

func qrPayload(t *model.Ticket) string {
	return fmt.Sprintf("TICKET:%s;SCREENING:%s;AT:%s;SEATS:%s",
		t.ID, t.ScreeningID, t.StartsAt.Format("2006-01-02 15:04"), strings.Join(t.SeatLabels(), ","))
}
