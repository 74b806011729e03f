package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultRows        = 6
	DefaultSeatsPerRow = 10
)

// Layout describes the seat grid a new screening is created with.
type Layout struct {
	Rows        int
	SeatsPerRow int
	RowTypes    map[string]SeatType
}

// DefaultLayout is six rows of ten regular seats.
func DefaultLayout() Layout {
	return Layout{Rows: DefaultRows, SeatsPerRow: DefaultSeatsPerRow}
}

// Screening is one scheduled showing of a movie. StartsAt carries the local
// wall-clock date and time in UTC without any zone conversion.
type Screening struct {
	ID         string
	MovieID    string
	MovieTitle string
	StartsAt   time.Time
	Hall       string
	Price      decimal.Decimal
	Grid       *SeatGrid
}

// NewScreening creates a screening for movie with a fresh seat grid.
func NewScreening(id string, movie *Movie, startsAt time.Time, hall string, price decimal.Decimal, layout Layout) (*Screening, error) {
	grid, err := NewSeatGrid(layout.Rows, layout.SeatsPerRow, layout.RowTypes)
	if err != nil {
		return nil, err
	}
	return &Screening{
		ID:         id,
		MovieID:    movie.ID,
		MovieTitle: movie.Title,
		StartsAt:   startsAt,
		Hall:       hall,
		Price:      price,
		Grid:       grid,
	}, nil
}

// Date returns StartsAt truncated to midnight.
func (s *Screening) Date() time.Time { return DateOf(s.StartsAt) }

// On reports whether the screening starts on the given calendar day.
func (s *Screening) On(day time.Time) bool { return SameDay(s.StartsAt, day) }

func (s *Screening) DateString() string { return s.StartsAt.Format(DateLayout) }
func (s *Screening) TimeString() string { return s.StartsAt.Format(TimeLayout) }

// DateOf drops the clock part of t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// At joins a calendar date and an "HH:MM" clock time.
func At(day time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, time.UTC), nil
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
