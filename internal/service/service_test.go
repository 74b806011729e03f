package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/remote"
)

var day = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }

// memBackend is an in-memory remote.Backend. Setting delay slows every call,
// saveDelay slows only SaveMovie and SaveTicket, and fail makes every write
// fail.
type memBackend struct {
	mu         sync.Mutex
	users      map[string]remote.UserRecord
	movies     map[string]remote.MovieRecord
	screenings map[string]remote.ScreeningRecord
	tickets    map[string]remote.TicketRecord

	delay     time.Duration
	saveDelay time.Duration
	fail      error
}

func newMemBackend() *memBackend {
	return &memBackend{
		users:      make(map[string]remote.UserRecord),
		movies:     make(map[string]remote.MovieRecord),
		screenings: make(map[string]remote.ScreeningRecord),
		tickets:    make(map[string]remote.TicketRecord),
	}
}

func (b *memBackend) enter(ctx context.Context) (func(), error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	return b.mu.Unlock, nil
}

func (b *memBackend) write(ctx context.Context, fn func()) error {
	unlock, err := b.enter(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if b.fail != nil {
		return b.fail
	}
	fn()
	return nil
}

func (b *memBackend) CreateUserIfAbsent(ctx context.Context, u remote.UserRecord) (bool, error) {
	var created bool
	err := b.write(ctx, func() {
		if _, ok := b.users[u.Email]; !ok {
			b.users[u.Email] = u
			created = true
		}
	})
	return created, err
}

func (b *memBackend) FindUserByEmail(ctx context.Context, email string) (*remote.UserRecord, error) {
	unlock, err := b.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if u, ok := b.users[email]; ok {
		return &u, nil
	}
	return nil, nil
}

func (b *memBackend) DeleteUserByEmail(ctx context.Context, email string) error {
	return b.write(ctx, func() { delete(b.users, email) })
}

func (b *memBackend) ListUsers(ctx context.Context) ([]remote.UserRecord, error) {
	unlock, err := b.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []remote.UserRecord
	for _, u := range b.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (b *memBackend) SaveMovie(ctx context.Context, m remote.MovieRecord) error {
	time.Sleep(b.saveDelay)
	return b.write(ctx, func() { b.movies[m.ID] = m })
}

func (b *memBackend) CreateMovieIfAbsent(ctx context.Context, m remote.MovieRecord) (bool, error) {
	var created bool
	err := b.write(ctx, func() {
		for _, existing := range b.movies {
			if existing.Title == m.Title {
				return
			}
		}
		b.movies[m.ID] = m
		created = true
	})
	return created, err
}

func (b *memBackend) DeleteMovie(ctx context.Context, id string) error {
	return b.write(ctx, func() {
		delete(b.movies, id)
		for sid, s := range b.screenings {
			if s.MovieID == id {
				b.dropScreening(sid)
			}
		}
	})
}

func (b *memBackend) dropScreening(id string) {
	delete(b.screenings, id)
	for tid, t := range b.tickets {
		if t.ScreeningID == id {
			delete(b.tickets, tid)
		}
	}
}

func (b *memBackend) ListMovies(ctx context.Context) ([]remote.MovieRecord, error) {
	unlock, err := b.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []remote.MovieRecord
	for _, m := range b.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (b *memBackend) SaveScreening(ctx context.Context, s remote.ScreeningRecord) error {
	return b.write(ctx, func() { b.screenings[s.ID] = s })
}

func (b *memBackend) DeleteScreening(ctx context.Context, id string) error {
	return b.write(ctx, func() { b.dropScreening(id) })
}

func (b *memBackend) ListScreenings(ctx context.Context) ([]remote.ScreeningRecord, error) {
	unlock, err := b.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []remote.ScreeningRecord
	for _, s := range b.screenings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) SaveTicket(ctx context.Context, t remote.TicketRecord) error {
	time.Sleep(b.saveDelay)
	return b.write(ctx, func() { b.tickets[t.ID] = t })
}

func (b *memBackend) DeleteTicket(ctx context.Context, id string) error {
	return b.write(ctx, func() { delete(b.tickets, id) })
}

func (b *memBackend) ListTickets(ctx context.Context) ([]remote.TicketRecord, error) {
	unlock, err := b.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []remote.TicketRecord
	for _, t := range b.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (b *memBackend) Close() error { return nil }

func (b *memBackend) count(fn func() int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []queue.EventType
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newOffline(opts ...Option) *BookingService {
	return New(directory.New(), nil, append([]Option{WithClock(fixedClock)}, opts...)...)
}

func newOnline(b remote.Backend, opts ...Option) *BookingService {
	store := remote.NewStore(b, remote.WithCallTimeout(2*time.Second))
	return New(directory.New(), store, append([]Option{WithClock(fixedClock)}, opts...)...)
}

func addMovie(t *testing.T, s *BookingService, title, price string) (*model.Movie, *model.Screening) {
	t.Helper()
	m, err := s.AddMovie(context.Background(), MovieInput{
		Title:           title,
		DurationMinutes: 120,
		Screening: ScreeningInput{
			Date:  day,
			Start: "19:00",
			End:   "21:00",
			Hall:  "Hall 1",
			Price: decimal.RequireFromString(price),
		},
	})
	require.NoError(t, err)
	screenings := m.Screenings()
	require.Len(t, screenings, 1)
	return m, screenings[0]
}

func seats(t *testing.T, labels ...string) []model.SeatKey {
	t.Helper()
	keys, err := model.ParseSeatLabels(labels)
	require.NoError(t, err)
	return keys
}

func register(t *testing.T, s *BookingService, email string) *model.User {
	t.Helper()
	u, err := s.RegisterUser(context.Background(), Registration{
		Email:      email,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Phone:      "(555) 123-4567",
		Credential: "secret1",
	})
	require.NoError(t, err)
	return u
}

func reserved(sc *model.Screening, label string) bool {
	k, err := model.ParseSeatLabel(label)
	if err != nil {
		return false
	}
	seat, ok := sc.Grid.Lookup(k.Row, k.Number)
	return ok && seat.State == model.SeatReserved
}
