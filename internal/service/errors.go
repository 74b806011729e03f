package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrMovieNotFound     = fmt.Errorf("movie %w", ErrNotFound)
	ErrScreeningNotFound = fmt.Errorf("screening %w", ErrNotFound)
	ErrTicketNotFound    = fmt.Errorf("ticket %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)

	ErrEmailTaken = errors.New("email already registered")
	ErrTitleTaken = errors.New("a movie with this title already exists")

	// ErrSeatsUnavailable matches *model.SeatConflictError.
	ErrSeatsUnavailable = model.ErrSeatsUnavailable

	// ErrChangeFailed means the replacement could not be issued and the
	// original ticket was reinstated with its seats.
	ErrChangeFailed = errors.New("ticket change failed, original ticket kept")
	// ErrChangeOrphaned means the replacement failed and the original ticket
	// could not be reinstated either.
	ErrChangeOrphaned = errors.New("ticket change failed, original ticket could not be restored")

	ErrForbidden = errors.New("forbidden")
)

// ValidationError lists rejected input fields with a reason for each.
type ValidationError struct {
	Fields map[string]string
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}
