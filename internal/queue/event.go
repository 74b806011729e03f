// Package queue carries booking events over RabbitMQ: the publisher used by
// the booking service and the consumer that appends them to the booking log.
package queue

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names what happened to a ticket.
type EventType string

const (
	TicketIssued    EventType = "ticket.issued"
	TicketCancelled EventType = "ticket.cancelled"
	TicketChanged   EventType = "ticket.changed"
	TicketUsed      EventType = "ticket.used"
)

// BookingEvent is published after every ticket operation. It carries enough
// for downstream consumers to log or notify without reading the store.
type BookingEvent struct {
	Type             EventType       `json:"type"`
	TicketID         string          `json:"ticket_id"`
	ScreeningID      string          `json:"screening_id"`
	MovieTitle       string          `json:"movie_title"`
	Hall             string          `json:"hall"`
	StartsAt         time.Time       `json:"starts_at"`
	Seats            []string        `json:"seats"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	Customer         string          `json:"customer"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PreviousTicketID string          `json:"previous_ticket_id,omitempty"`
}
