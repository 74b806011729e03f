package model

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is an issued reservation. Everything except the used flag is fixed
// at creation; TotalPrice is a snapshot and is never recomputed.
type Ticket struct {
	ID          string
	ScreeningID string
	MovieTitle  string
	StartsAt    time.Time
	Hall        string
	Seats       []Seat
	FirstName   string
	LastName    string
	OwnerID     string // empty for guests and counter sales
	GuestID     string // session id of the booking guest; kept in memory only
	PurchasedAt time.Time
	TotalPrice  decimal.Decimal

	used atomic.Bool
}

// NewTicket snapshots the screening and prices the seats.
func NewTicket(id string, s *Screening, seats []Seat, firstName, lastName, ownerID string, now time.Time) *Ticket {
	held := make([]Seat, len(seats))
	for i, seat := range seats {
		seat.State = SeatReserved
		held[i] = seat
	}
	return &Ticket{
		ID:          id,
		ScreeningID: s.ID,
		MovieTitle:  s.MovieTitle,
		StartsAt:    s.StartsAt,
		Hall:        s.Hall,
		Seats:       held,
		FirstName:   firstName,
		LastName:    lastName,
		OwnerID:     ownerID,
		PurchasedAt: now,
		TotalPrice:  PriceSeats(s.Price, seats),
	}
}

// PriceSeats sums price times the seat type multiplier, rounded to cents.
func PriceSeats(price decimal.Decimal, seats []Seat) decimal.Decimal {
	total := decimal.Zero
	for _, seat := range seats {
		total = total.Add(price.Mul(seat.Type.Multiplier()))
	}
	return total.Round(2)
}

func (t *Ticket) SeatKeys() []SeatKey {
	keys := make([]SeatKey, len(t.Seats))
	for i, s := range t.Seats {
		keys[i] = s.Key()
	}
	return keys
}

func (t *Ticket) SeatLabels() []string { return SeatLabels(t.SeatKeys()) }

func (t *Ticket) CustomerName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

func (t *Ticket) Used() bool { return t.used.Load() }

// MarkUsed flips the ticket to used. It returns false if it already was.
func (t *Ticket) MarkUsed() bool { return t.used.CompareAndSwap(false, true) }

// SetUsed restores the flag when rebuilding a ticket from storage.
func (t *Ticket) SetUsed(v bool) { t.used.Store(v) }
