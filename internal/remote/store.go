// Package remote is the durable side of the booking engine. Backends do the
// blocking I/O; Store wraps one and hands out futures so callers choose
// between fire-and-forget and a bounded wait.
package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/monitoring"
)

// ErrOffline is the result of every call on a store without a backend.
var ErrOffline = errors.New("remote store not initialized")

// Backend is a blocking persistence implementation. CreateUserIfAbsent and
// CreateMovieIfAbsent must be atomic on the natural key (email, title) so that
// concurrent seeding cannot create duplicates. Find methods return nil, nil
// when nothing matches.
type Backend interface {
	CreateUserIfAbsent(ctx context.Context, u UserRecord) (bool, error)
	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	DeleteUserByEmail(ctx context.Context, email string) error
	ListUsers(ctx context.Context) ([]UserRecord, error)

	SaveMovie(ctx context.Context, m MovieRecord) error
	CreateMovieIfAbsent(ctx context.Context, m MovieRecord) (bool, error)
	DeleteMovie(ctx context.Context, id string) error
	ListMovies(ctx context.Context) ([]MovieRecord, error)

	SaveScreening(ctx context.Context, s ScreeningRecord) error
	DeleteScreening(ctx context.Context, id string) error
	ListScreenings(ctx context.Context) ([]ScreeningRecord, error)

	SaveTicket(ctx context.Context, t TicketRecord) error
	DeleteTicket(ctx context.Context, id string) error
	ListTickets(ctx context.Context) ([]TicketRecord, error)

	Close() error
}

type Option func(*Store)

// WithCallTimeout bounds every backend call. Defaults to 10s.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *monitoring.Metrics) Option { return func(s *Store) { s.metrics = m } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *Store) { s.log = l } }

// Store is the future-returning adapter over a Backend. Writes reach the
// backend one at a time in the order they were issued; reads wait for the
// writes issued before them.
type Store struct {
	backend Backend
	timeout time.Duration
	metrics *monitoring.Metrics
	log     logrus.FieldLogger

	mu   sync.Mutex
	tail chan struct{} // closed once the last queued write has finished
}

// NewStore wraps b. A nil backend yields an offline store.
func NewStore(b Backend, opts ...Option) *Store {
	idle := make(chan struct{})
	close(idle)
	s := &Store{backend: b, timeout: 10 * time.Second, log: logrus.StandardLogger(), tail: idle}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Offline returns a store that is never initialized.
func Offline() *Store { return NewStore(nil) }

func (s *Store) Initialized() bool { return s != nil && s.backend != nil }

func (s *Store) Close() error {
	if !s.Initialized() {
		return nil
	}
	return s.backend.Close()
}

// call executes fn against the backend under the store deadline. The call is
// detached from ctx cancellation so an abandoned request does not abort a
// write; values carried by ctx are kept.
func call[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context, b Backend) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	start := time.Now()
	v, err := fn(callCtx, s.backend)
	took := time.Since(start)
	s.metrics.RemoteCall(op, err, took)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"op": op, "took": took}).Debug("remote call failed")
	}
	return v, err
}

// run is a read. It starts once every write issued before it has finished
// and does not hold up later calls.
func run[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context, b Backend) (T, error)) *Future[T] {
	if !s.Initialized() {
		var zero T
		return Ready(zero, ErrOffline)
	}
	s.mu.Lock()
	prev := s.tail
	s.mu.Unlock()
	return Go(func() (T, error) {
		<-prev
		return call(ctx, s, op, fn)
	})
}

// write queues fn behind every earlier write, so an older save can never
// land after a newer delete of the same entity.
func write[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context, b Backend) (T, error)) *Future[T] {
	if !s.Initialized() {
		var zero T
		return Ready(zero, ErrOffline)
	}
	done := make(chan struct{})
	s.mu.Lock()
	prev := s.tail
	s.tail = done
	s.mu.Unlock()
	return Go(func() (T, error) {
		defer close(done)
		<-prev
		return call(ctx, s, op, fn)
	})
}

func exec(ctx context.Context, s *Store, op string, fn func(ctx context.Context, b Backend) error) *Future[struct{}] {
	return write(ctx, s, op, func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, fn(ctx, b)
	})
}

// SaveUserIfAbsent reports whether the user was created.
func (s *Store) SaveUserIfAbsent(ctx context.Context, u *model.User) *Future[bool] {
	rec := UserToRecord(u)
	return write(ctx, s, "save_user_if_absent", func(ctx context.Context, b Backend) (bool, error) {
		return b.CreateUserIfAbsent(ctx, rec)
	})
}

// FindUser resolves to nil when no user has that email.
func (s *Store) FindUser(ctx context.Context, email string) *Future[*UserRecord] {
	email = model.NormalizeEmail(email)
	return run(ctx, s, "find_user", func(ctx context.Context, b Backend) (*UserRecord, error) {
		return b.FindUserByEmail(ctx, email)
	})
}

func (s *Store) DeleteUser(ctx context.Context, email string) *Future[struct{}] {
	email = model.NormalizeEmail(email)
	return exec(ctx, s, "delete_user", func(ctx context.Context, b Backend) error {
		return b.DeleteUserByEmail(ctx, email)
	})
}

func (s *Store) Users(ctx context.Context) *Future[[]UserRecord] {
	return run(ctx, s, "list_users", func(ctx context.Context, b Backend) ([]UserRecord, error) {
		return b.ListUsers(ctx)
	})
}

// SaveMovie writes the movie and every screening it owns at call time.
func (s *Store) SaveMovie(ctx context.Context, m *model.Movie) *Future[struct{}] {
	rec, screenings := movieSnapshot(m)
	return exec(ctx, s, "save_movie", func(ctx context.Context, b Backend) error {
		if err := b.SaveMovie(ctx, rec); err != nil {
			return err
		}
		return saveScreenings(ctx, b, screenings)
	})
}

// SaveMovieIfAbsent creates the movie and its screenings only when no movie
// with the same title exists remotely. It reports whether it wrote anything.
func (s *Store) SaveMovieIfAbsent(ctx context.Context, m *model.Movie) *Future[bool] {
	rec, screenings := movieSnapshot(m)
	return write(ctx, s, "save_movie_if_absent", func(ctx context.Context, b Backend) (bool, error) {
		created, err := b.CreateMovieIfAbsent(ctx, rec)
		if err != nil || !created {
			return false, err
		}
		return true, saveScreenings(ctx, b, screenings)
	})
}

func movieSnapshot(m *model.Movie) (MovieRecord, []ScreeningRecord) {
	var screenings []ScreeningRecord
	for _, sc := range m.Screenings() {
		screenings = append(screenings, ScreeningToRecord(sc))
	}
	return MovieToRecord(m), screenings
}

func saveScreenings(ctx context.Context, b Backend, recs []ScreeningRecord) error {
	for _, r := range recs {
		if err := b.SaveScreening(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMovie removes the movie with its screenings and their tickets.
func (s *Store) DeleteMovie(ctx context.Context, id string) *Future[struct{}] {
	return exec(ctx, s, "delete_movie", func(ctx context.Context, b Backend) error {
		return b.DeleteMovie(ctx, id)
	})
}

func (s *Store) SaveScreening(ctx context.Context, sc *model.Screening) *Future[struct{}] {
	rec := ScreeningToRecord(sc)
	return exec(ctx, s, "save_screening", func(ctx context.Context, b Backend) error {
		return b.SaveScreening(ctx, rec)
	})
}

func (s *Store) DeleteScreening(ctx context.Context, id string) *Future[struct{}] {
	return exec(ctx, s, "delete_screening", func(ctx context.Context, b Backend) error {
		return b.DeleteScreening(ctx, id)
	})
}

func (s *Store) SaveTicket(ctx context.Context, t *model.Ticket) *Future[struct{}] {
	rec := TicketToRecord(t)
	return exec(ctx, s, "save_ticket", func(ctx context.Context, b Backend) error {
		return b.SaveTicket(ctx, rec)
	})
}

func (s *Store) DeleteTicket(ctx context.Context, id string) *Future[struct{}] {
	return exec(ctx, s, "delete_ticket", func(ctx context.Context, b Backend) error {
		return b.DeleteTicket(ctx, id)
	})
}

// Catalog loads movies, screenings and tickets in one call.
func (s *Store) Catalog(ctx context.Context) *Future[Catalog] {
	return run(ctx, s, "load_catalog", func(ctx context.Context, b Backend) (Catalog, error) {
		var (
			c   Catalog
			err error
		)
		if c.Movies, err = b.ListMovies(ctx); err != nil {
			return Catalog{}, err
		}
		if c.Screenings, err = b.ListScreenings(ctx); err != nil {
			return Catalog{}, err
		}
		if c.Tickets, err = b.ListTickets(ctx); err != nil {
			return Catalog{}, err
		}
		return c, nil
	})
}
