package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrSeatNotFound     = errors.New("seat not found")
	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrNoSeats          = errors.New("no seats requested")
	ErrDuplicateSeat    = errors.New("seat requested twice")
	ErrBadGrid          = errors.New("grid dimensions must be positive")
)

// SeatConflictError lists the requested seats that were already reserved.
type SeatConflictError struct {
	Seats []SeatKey
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(SeatLabels(e.Seats), ","))
}

func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatsUnavailable }

// SeatGrid is the seat matrix of one screening. Every mutation goes through
// ReserveAll or ReleaseAll, both of which hold the grid lock across the whole
// batch, so two overlapping reservations can never both succeed.
type SeatGrid struct {
	mu       sync.Mutex
	rows     int
	perRow   int
	rowTypes []SeatType
	reserved []bool
}

// MaxRows is the largest grid whose row labels fit in MaxRowLabelLen letters.
const MaxRows = 26 + 26*26 + 26*26*26

// NewSeatGrid builds a rows x perRow grid. rowTypes optionally assigns a seat
// type to whole rows by label; rows not listed are regular.
func NewSeatGrid(rows, perRow int, rowTypes map[string]SeatType) (*SeatGrid, error) {
	if rows <= 0 || perRow <= 0 || rows > MaxRows {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadGrid, rows, perRow)
	}
	g := &SeatGrid{
		rows:     rows,
		perRow:   perRow,
		rowTypes: make([]SeatType, rows),
		reserved: make([]bool, rows*perRow),
	}
	for i := range g.rowTypes {
		g.rowTypes[i] = SeatRegular
	}
	for label, t := range rowTypes {
		if i, ok := RowIndex(label); ok && i < rows {
			g.rowTypes[i] = t
		}
	}
	return g, nil
}

func (g *SeatGrid) Rows() int        { return g.rows }
func (g *SeatGrid) SeatsPerRow() int { return g.perRow }
func (g *SeatGrid) Capacity() int    { return g.rows * g.perRow }

func (g *SeatGrid) index(k SeatKey) (int, bool) {
	r, ok := RowIndex(k.Row)
	if !ok || r < 0 || r >= g.rows || k.Number < 1 || k.Number > g.perRow {
		return 0, false
	}
	return r*g.perRow + k.Number - 1, true
}

func (g *SeatGrid) seatAt(i int) Seat {
	r := i / g.perRow
	st := SeatAvailable
	if g.reserved[i] {
		st = SeatReserved
	}
	return Seat{Row: RowLabel(r), Number: i%g.perRow + 1, Type: g.rowTypes[r], State: st}
}

// Lookup returns a snapshot of one seat, or false if the key is outside the grid.
func (g *SeatGrid) Lookup(row string, number int) (Seat, bool) {
	i, ok := g.index(SeatKey{Row: row, Number: number})
	if !ok {
		return Seat{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seatAt(i), true
}

// Validate checks that keys are non-empty, in range and distinct, and returns
// the matching seat snapshots.
func (g *SeatGrid) Validate(keys []SeatKey) ([]Seat, error) {
	if len(keys) == 0 {
		return nil, ErrNoSeats
	}
	idx, err := g.indexes(keys)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Seat, len(idx))
	for n, i := range idx {
		out[n] = g.seatAt(i)
	}
	return out, nil
}

func (g *SeatGrid) indexes(keys []SeatKey) ([]int, error) {
	idx := make([]int, 0, len(keys))
	seen := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		i, ok := g.index(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSeatNotFound, k.Label())
		}
		if _, dup := seen[i]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSeat, k.Label())
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	return idx, nil
}

// ReserveAll reserves every key or none of them. A key outside the grid fails
// with ErrSeatNotFound; an already reserved seat fails with a
// *SeatConflictError that matches ErrSeatsUnavailable.
func (g *SeatGrid) ReserveAll(keys []SeatKey) error {
	if len(keys) == 0 {
		return ErrNoSeats
	}
	idx, err := g.indexes(keys)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var taken []SeatKey
	for n, i := range idx {
		if g.reserved[i] {
			taken = append(taken, keys[n])
		}
	}
	if len(taken) > 0 {
		return &SeatConflictError{Seats: taken}
	}
	for _, i := range idx {
		g.reserved[i] = true
	}
	return nil
}

// ReleaseAll marks the keys available again. Already available and
// out-of-range keys are ignored.
func (g *SeatGrid) ReleaseAll(keys []SeatKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range keys {
		if i, ok := g.index(k); ok {
			g.reserved[i] = false
		}
	}
}

func (g *SeatGrid) snapshot(filter func(reserved bool) bool) []Seat {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Seat
	for i, r := range g.reserved {
		if filter(r) {
			out = append(out, g.seatAt(i))
		}
	}
	return out
}

// Seats returns every seat in row-major order.
func (g *SeatGrid) Seats() []Seat { return g.snapshot(func(bool) bool { return true }) }

func (g *SeatGrid) AvailableSeats() []Seat { return g.snapshot(func(r bool) bool { return !r }) }

func (g *SeatGrid) ReservedSeats() []Seat { return g.snapshot(func(r bool) bool { return r }) }
