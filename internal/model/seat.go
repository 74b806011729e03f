package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SeatState is the availability of one seat inside a screening.
type SeatState int

const (
	SeatAvailable SeatState = iota
	SeatReserved
)

func (s SeatState) String() string {
	if s == SeatReserved {
		return "RESERVED"
	}
	return "AVAILABLE"
}

func (s SeatState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SeatType drives the price multiplier applied to a screening's base price.
type SeatType string

const (
	SeatRegular SeatType = "REGULAR"
	SeatVIP     SeatType = "VIP"
	SeatPremium SeatType = "PREMIUM"
)

var seatMultipliers = map[SeatType]decimal.Decimal{
	SeatRegular: decimal.NewFromInt(1),
	SeatVIP:     decimal.NewFromFloat(1.5),
	SeatPremium: decimal.NewFromInt(2),
}

// Multiplier returns the price factor for the seat type. Unknown types price as regular.
func (t SeatType) Multiplier() decimal.Decimal {
	if m, ok := seatMultipliers[t]; ok {
		return m
	}
	return seatMultipliers[SeatRegular]
}

// ParseSeatType accepts the persisted upper-case names.
func ParseSeatType(s string) (SeatType, bool) {
	t := SeatType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := seatMultipliers[t]
	return t, ok
}

// SeatKey identifies a seat within one screening: row label plus 1-based number.
type SeatKey struct {
	Row    string `json:"row"`
	Number int    `json:"number"`
}

// Label renders the key as row + number, e.g. "B12".
func (k SeatKey) Label() string { return k.Row + strconv.Itoa(k.Number) }

func (k SeatKey) String() string { return k.Label() }

// Seat is a snapshot of one grid cell. Only SeatGrid hands these out.
type Seat struct {
	Row    string    `json:"row"`
	Number int       `json:"number"`
	Type   SeatType  `json:"type"`
	State  SeatState `json:"state"`
}

func (s Seat) Key() SeatKey { return SeatKey{Row: s.Row, Number: s.Number} }

func (s Seat) Label() string { return s.Key().Label() }

var ErrBadSeatLabel = errors.New("malformed seat label")

// ParseSeatLabel splits "B12" into (B, 12). Multi-letter rows such as "AA3" are supported.
func ParseSeatLabel(label string) (SeatKey, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) || i > MaxRowLabelLen {
		return SeatKey{}, fmt.Errorf("%w: %q", ErrBadSeatLabel, label)
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 || s[i] == '0' {
		return SeatKey{}, fmt.Errorf("%w: %q", ErrBadSeatLabel, label)
	}
	return SeatKey{Row: s[:i], Number: n}, nil
}

// ParseSeatLabels parses every label or fails on the first malformed one.
func ParseSeatLabels(labels []string) ([]SeatKey, error) {
	keys := make([]SeatKey, 0, len(labels))
	for _, l := range labels {
		k, err := ParseSeatLabel(l)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// SeatLabels renders keys as labels in the same order.
func SeatLabels(keys []SeatKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Label()
	}
	return out
}

// RowLabel converts a zero-based row index to A, B, ..., Z, AA, AB, ...
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// MaxRowLabelLen bounds row labels; three letters already name 18278 rows.
const MaxRowLabelLen = 3

// RowIndex is the inverse of RowLabel. Labels longer than MaxRowLabelLen
// are rejected.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" || len(s) > MaxRowLabelLen {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}
