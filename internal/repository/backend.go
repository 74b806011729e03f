package repository

import (
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/remote"
)

// Backend serves remote.Backend from the four table repos.
type Backend struct {
	*UserRepo
	*MovieRepo
	*ScreeningRepo
	*TicketRepo

	db *sql.DB
}

var _ remote.Backend = (*Backend)(nil)

func NewBackend(db *sql.DB) *Backend {
	return &Backend{
		UserRepo:      NewUserRepo(db),
		MovieRepo:     NewMovieRepo(db),
		ScreeningRepo: NewScreeningRepo(db),
		TicketRepo:    NewTicketRepo(db),
		db:            db,
	}
}

func (b *Backend) Close() error { return b.db.Close() }
