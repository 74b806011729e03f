// Package service is the booking engine: it owns the in-memory directory,
// serves every operation from it and writes changes through to the remote
// store without waiting for them.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/log"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/monitoring"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/remote"
)

// EventPublisher receives a BookingEvent after each ticket operation. Calls
// are made off the request path.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

type Option func(*BookingService)

func WithEvents(p EventPublisher) Option { return func(s *BookingService) { s.events = p } }

func WithMetrics(m *monitoring.Metrics) Option { return func(s *BookingService) { s.metrics = m } }

func WithLogger(l *logrus.Entry) Option { return func(s *BookingService) { s.log = l } }

// WithLayout sets the seat layout of screenings created by this service.
func WithLayout(l model.Layout) Option { return func(s *BookingService) { s.layout = l } }

// WithSyncTimeout bounds the calls that wait on the remote store: login
// fallback, user listing and catalog refresh. Defaults to 10s.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.syncTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *BookingService) { s.now = now } }

func WithIDs(next func() string) Option { return func(s *BookingService) { s.newID = next } }

// BookingService is safe for concurrent use.
type BookingService struct {
	dir         *directory.Directory
	store       *remote.Store
	events      EventPublisher
	metrics     *monitoring.Metrics
	log         *logrus.Entry
	layout      model.Layout
	syncTimeout time.Duration
	now         func() time.Time
	newID       func() string

	refresh singleflight.Group
	pending sync.WaitGroup
}

// New builds a service over dir. A nil store runs the service offline.
func New(dir *directory.Directory, store *remote.Store, opts ...Option) *BookingService {
	if store == nil {
		store = remote.Offline()
	}
	s := &BookingService{
		dir:         dir,
		store:       store,
		log:         logrus.NewEntry(logrus.StandardLogger()),
		layout:      model.DefaultLayout(),
		syncTimeout: 10 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Online reports whether a remote store is configured.
func (s *BookingService) Online() bool { return s.store.Initialized() }

// Wait blocks until every write-through started so far has finished.
func (s *BookingService) Wait() { s.pending.Wait() }

func (s *BookingService) logger(ctx context.Context) *logrus.Entry {
	if id := log.CorrelationIDFromContext(ctx); id != "" {
		return log.FromContext(ctx)
	}
	return s.log
}

// track watches a write-through call. Failures are logged and otherwise
// ignored: local state is never rolled back. Writes are issued inside
// dir.Update so the store receives them in directory commit order.
func track[T any](ctx context.Context, s *BookingService, op, id string, f *remote.Future[T]) {
	if !s.store.Initialized() {
		return
	}
	l := s.logger(ctx).WithFields(logrus.Fields{"op": op, "id": id})
	s.pending.Add(1)
	f.Then(func(_ T, err error) {
		defer s.pending.Done()
		if err != nil && !errors.Is(err, remote.ErrOffline) {
			l.WithError(err).Warn("write-through failed, local state kept")
		}
	})
}

func (s *BookingService) publish(ctx context.Context, typ queue.EventType, t *model.Ticket, previousID string) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:             typ,
		TicketID:         t.ID,
		ScreeningID:      t.ScreeningID,
		MovieTitle:       t.MovieTitle,
		Hall:             t.Hall,
		StartsAt:         t.StartsAt,
		Seats:            t.SeatLabels(),
		TotalPrice:       t.TotalPrice,
		Customer:         t.CustomerName(),
		OccurredAt:       s.now().UTC(),
		PreviousTicketID: previousID,
	}
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger(ctx).WithError(err).WithField("ticket_id", ev.TicketID).Warn("publish booking event failed")
		}
	}()
}
