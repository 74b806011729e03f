package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
)

func TestCreateTicket_PricesAndReserves(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	u := register(t, s, "ada@example.com")

	tk, err := s.CreateTicket(context.Background(), u, TicketRequest{ScreeningID: sc.ID, Seats: seats(t, "A1", "A2")})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("25").Equal(tk.TotalPrice))
	assert.Equal(t, []string{"A1", "A2"}, tk.SeatLabels())
	assert.Equal(t, "Ada Lovelace", tk.CustomerName())
	assert.Equal(t, u.ID, tk.OwnerID)
	assert.Equal(t, fixedClock(), tk.PurchasedAt)
	assert.True(t, reserved(sc, "A1"))
	assert.True(t, reserved(sc, "A2"))

	mine := s.CurrentUserTickets(u)
	require.Len(t, mine, 1)
	assert.Equal(t, tk.ID, mine[0].ID)
	assert.Len(t, s.TicketsForScreening(sc.ID), 1)
}

func TestCreateTicket_ConflictLeavesOtherSeatsFree(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")

	_, err := s.CreateTicketForCustomer(context.Background(), TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A1", "A2"), FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)

	_, err = s.CreateTicketForCustomer(context.Background(), TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A2", "A3"), FirstName: "Alan", LastName: "Turing",
	})
	require.ErrorIs(t, err, ErrSeatsUnavailable)

	var conflict *model.SeatConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"A2"}, model.SeatLabels(conflict.Seats))
	assert.False(t, reserved(sc, "A3"))
	assert.Len(t, s.TicketsForScreening(sc.ID), 1)
}

func TestCreateTicket_RejectsBadInput(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	ctx := context.Background()

	_, err := s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A1", "Z1"), FirstName: "Ada", LastName: "Lovelace",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "seats")
	assert.False(t, reserved(sc, "A1"))

	_, err = s.CreateTicketForCustomer(ctx, TicketRequest{ScreeningID: sc.ID, FirstName: "Ada", LastName: "Lovelace"})
	assert.ErrorAs(t, err, &verr)

	_, err = s.CreateTicketForCustomer(ctx, TicketRequest{ScreeningID: sc.ID, Seats: seats(t, "A1")})
	assert.ErrorAs(t, err, &verr)

	_, err = s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: "missing", Seats: seats(t, "A1"), FirstName: "Ada", LastName: "Lovelace",
	})
	assert.ErrorIs(t, err, ErrScreeningNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTicket_ConcurrentOverlapHasOneWinner(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")

	const buyers = 32
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	keys := seats(t, "C4", "C5")
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateTicketForCustomer(context.Background(), TicketRequest{
				ScreeningID: sc.ID, Seats: keys, FirstName: "Ada", LastName: "Lovelace",
			})
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Len(t, s.TicketsForScreening(sc.ID), 1)
}

func TestCreateTicket_ConcurrentPartialOverlap(t *testing.T) {
	left, right := seats(t, "A1", "A2"), seats(t, "A2", "A3")
	for round := 0; round < 50; round++ {
		s := newOffline()
		_, sc := addMovie(t, s, "Oppenheimer", "12.50")

		var wg sync.WaitGroup
		var errLeft, errRight error
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			_, errLeft = s.CreateTicketForCustomer(context.Background(), TicketRequest{
				ScreeningID: sc.ID, Seats: left, FirstName: "Ada", LastName: "Lovelace",
			})
		}()
		go func() {
			defer wg.Done()
			<-start
			_, errRight = s.CreateTicketForCustomer(context.Background(), TicketRequest{
				ScreeningID: sc.ID, Seats: right, FirstName: "Grace", LastName: "Hopper",
			})
		}()
		close(start)
		wg.Wait()

		require.True(t, (errLeft == nil) != (errRight == nil), "round %d: exactly one buyer wins", round)
		assert.True(t, reserved(sc, "A2"))
		if errLeft == nil {
			assert.ErrorIs(t, errRight, ErrSeatsUnavailable)
			assert.True(t, reserved(sc, "A1"))
			assert.False(t, reserved(sc, "A3"), "round %d: loser's free seat stays available", round)
		} else {
			assert.ErrorIs(t, errLeft, ErrSeatsUnavailable)
			assert.True(t, reserved(sc, "A3"))
			assert.False(t, reserved(sc, "A1"), "round %d: loser's free seat stays available", round)
		}
		assert.Len(t, s.TicketsForScreening(sc.ID), 1)
	}
}

// assertNoSeatDrift checks that the reserved seats of sc are exactly the
// seats held by its live tickets, with no seat held twice.
func assertNoSeatDrift(t *testing.T, s *BookingService, sc *model.Screening) {
	t.Helper()
	var held, grid []string
	for _, tk := range s.TicketsForScreening(sc.ID) {
		held = append(held, tk.SeatLabels()...)
	}
	for _, seat := range sc.Grid.ReservedSeats() {
		grid = append(grid, seat.Label())
	}
	assert.ElementsMatch(t, held, grid, "screening %s", sc.ID)
}

func TestNoSeatDrift_MixedOperations(t *testing.T) {
	s := newOffline()
	ctx := context.Background()
	m, first := addMovie(t, s, "Oppenheimer", "12.50")
	second, err := s.AddScreeningToMovie(ctx, m.ID, ScreeningInput{
		Date: day, Start: "22:00", Hall: "Hall 2", Price: decimal.RequireFromString("9"),
	})
	require.NoError(t, err)
	third, err := s.AddScreeningToMovie(ctx, m.ID, ScreeningInput{
		Date: day, Start: "16:00", Hall: "Hall 3", Price: decimal.RequireFromString("8"),
	})
	require.NoError(t, err)
	u := register(t, s, "ada@example.com")

	a, err := s.CreateTicket(ctx, u, TicketRequest{ScreeningID: first.ID, Seats: seats(t, "A1", "A2")})
	require.NoError(t, err)
	b, err := s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: first.ID, Seats: seats(t, "B1", "B2", "B3"), FirstName: "Grace", LastName: "Hopper",
	})
	require.NoError(t, err)
	c, err := s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: first.ID, Seats: seats(t, "C1"), FirstName: "Alan", LastName: "Turing",
	})
	require.NoError(t, err)
	_, err = s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: first.ID, Seats: seats(t, "A2", "A3"), FirstName: "Ken", LastName: "Thompson",
	})
	require.ErrorIs(t, err, ErrSeatsUnavailable)
	_, err = s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: third.ID, Seats: seats(t, "E5", "E6"), FirstName: "Rob", LastName: "Pike",
	})
	require.NoError(t, err)

	require.True(t, s.CancelTicket(ctx, b.ID))
	moved, err := s.ChangeTicket(ctx, a.ID, second.ID, seats(t, "A1", "A2"))
	require.NoError(t, err)
	_, err = s.ChangeTicket(ctx, c.ID, second.ID, seats(t, "A2"))
	require.ErrorIs(t, err, ErrChangeFailed)
	_, err = s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: second.ID, Seats: seats(t, "D5"), FirstName: "Barbara", LastName: "Liskov",
	})
	require.NoError(t, err)
	require.True(t, s.DeleteUser(ctx, "ada@example.com"))
	require.True(t, s.DeleteScreening(ctx, third.ID))

	for _, sc := range []*model.Screening{first, second} {
		assertNoSeatDrift(t, s, sc)
	}
	assert.Len(t, first.Grid.ReservedSeats(), 1)
	assert.Len(t, second.Grid.ReservedSeats(), 3)
	_, err = s.Ticket(moved.Ticket.ID)
	assert.NoError(t, err)
}

func TestNoSeatDrift_ConcurrentCreateAndCancel(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	pool := [][]model.SeatKey{
		seats(t, "A1", "A2"), seats(t, "A2", "A3"), seats(t, "A3", "A4"),
		seats(t, "B1"), seats(t, "B1", "B2"), seats(t, "C7", "C8", "C9"),
	}

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		i := i
		keys := pool[i%len(pool)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, err := s.CreateTicketForCustomer(context.Background(), TicketRequest{
				ScreeningID: sc.ID, Seats: keys, FirstName: "Ada", LastName: "Lovelace",
			})
			if err == nil && i%3 == 0 {
				s.CancelTicket(context.Background(), tk.ID)
			}
		}()
	}
	wg.Wait()

	assertNoSeatDrift(t, s, sc)
}

func TestGuestTicketsHaveNoOwner(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "10")
	guest := s.LoginAsGuest()

	tk, err := s.CreateTicket(context.Background(), guest, TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "B1"), FirstName: "Walk", LastName: "In",
	})
	require.NoError(t, err)
	assert.Empty(t, tk.OwnerID)
	assert.Empty(t, s.CurrentUserTickets(guest))
	assert.False(t, CanManage(guest, tk))
	assert.True(t, CanView(guest, tk))
	assert.False(t, CanView(s.LoginAsGuest(), tk))

	counter, err := s.CreateTicketForCustomer(context.Background(), TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "B2"), FirstName: "Grace", LastName: "Hopper",
	})
	require.NoError(t, err)
	assert.False(t, CanView(guest, counter))

	_, ok := s.UserByID(guest.ID)
	assert.False(t, ok)
}

func TestCancelTicket(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	u := register(t, s, "ada@example.com")
	tk, err := s.CreateTicket(context.Background(), u, TicketRequest{ScreeningID: sc.ID, Seats: seats(t, "A1", "A2")})
	require.NoError(t, err)

	assert.True(t, s.CancelTicket(context.Background(), tk.ID))
	assert.False(t, reserved(sc, "A1"))
	assert.False(t, reserved(sc, "A2"))
	assert.Empty(t, s.CurrentUserTickets(u))
	_, err = s.Ticket(tk.ID)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	assert.False(t, s.CancelTicket(context.Background(), tk.ID))
}

func TestCancelTicket_RemoteDeleteFollowsSlowSave(t *testing.T) {
	b := newMemBackend()
	s := newOnline(b)
	ctx := context.Background()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	s.Wait()

	b.saveDelay = 100 * time.Millisecond
	tk, err := s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A1", "A2"), FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	require.True(t, s.CancelTicket(ctx, tk.ID))
	s.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tickets[tk.ID]
	assert.False(t, ok, "cancelled ticket must not reappear remotely")
	assert.Empty(t, b.screenings[sc.ID].ReservedSeats)
}

func TestChangeTicket(t *testing.T) {
	s := newOffline()
	m, first := addMovie(t, s, "Oppenheimer", "12.50")
	second, err := s.AddScreeningToMovie(context.Background(), m.ID, ScreeningInput{
		Date: day, Start: "22:00", Hall: "Hall 2", Price: decimal.RequireFromString("15"),
	})
	require.NoError(t, err)
	u := register(t, s, "ada@example.com")
	old, err := s.CreateTicket(context.Background(), u, TicketRequest{ScreeningID: first.ID, Seats: seats(t, "A1", "A2")})
	require.NoError(t, err)

	res, err := s.ChangeTicket(context.Background(), old.ID, second.ID, seats(t, "D5"))
	require.NoError(t, err)

	assert.Equal(t, old.ID, res.Previous.ID)
	assert.NotEqual(t, old.ID, res.Ticket.ID)
	assert.Equal(t, []string{"A1", "A2"}, res.Previous.SeatLabels())
	assert.Equal(t, []string{"D5"}, res.Ticket.SeatLabels())
	assert.Equal(t, u.ID, res.Ticket.OwnerID)
	assert.Equal(t, "Ada Lovelace", res.Ticket.CustomerName())
	assert.True(t, decimal.RequireFromString("15").Equal(res.Ticket.TotalPrice))

	assert.False(t, reserved(first, "A1"))
	assert.True(t, reserved(second, "D5"))
	_, err = s.Ticket(old.ID)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	mine := s.CurrentUserTickets(u)
	require.Len(t, mine, 1)
	assert.Equal(t, res.Ticket.ID, mine[0].ID)
}

func TestChangeTicket_FailureReinstatesOriginal(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	u := register(t, s, "ada@example.com")
	old, err := s.CreateTicket(context.Background(), u, TicketRequest{ScreeningID: sc.ID, Seats: seats(t, "A1")})
	require.NoError(t, err)
	_, err = s.CreateTicketForCustomer(context.Background(), TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "B1"), FirstName: "Alan", LastName: "Turing",
	})
	require.NoError(t, err)

	_, err = s.ChangeTicket(context.Background(), old.ID, sc.ID, seats(t, "B1", "B2"))
	require.ErrorIs(t, err, ErrChangeFailed)
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	back, err := s.Ticket(old.ID)
	require.NoError(t, err)
	assert.Same(t, old, back)
	assert.True(t, reserved(sc, "A1"))
	assert.False(t, reserved(sc, "B2"))
	assert.Len(t, s.CurrentUserTickets(u), 1)
}

func TestChangeTicket_ChecksTargetBeforeCancelling(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	old, err := s.CreateTicketForCustomer(context.Background(), TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A1"), FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)

	_, err = s.ChangeTicket(context.Background(), old.ID, "missing", seats(t, "A2"))
	assert.ErrorIs(t, err, ErrScreeningNotFound)

	_, err = s.ChangeTicket(context.Background(), old.ID, sc.ID, seats(t, "K99"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = s.ChangeTicket(context.Background(), "missing", sc.ID, seats(t, "A2"))
	assert.ErrorIs(t, err, ErrTicketNotFound)

	_, err = s.Ticket(old.ID)
	assert.NoError(t, err)
	assert.True(t, reserved(sc, "A1"))
}

func TestMarkUsed(t *testing.T) {
	s := newOffline()
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	tk, err := s.CreateTicketForCustomer(context.Background(), TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A1"), FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)

	assert.True(t, s.MarkUsed(context.Background(), tk.ID))
	assert.True(t, tk.Used())
	assert.True(t, s.MarkUsed(context.Background(), tk.ID))
	assert.False(t, s.MarkUsed(context.Background(), "missing"))
}

func TestTicketEvents(t *testing.T) {
	pub := &recordingPublisher{}
	s := newOffline(WithEvents(pub))
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	ctx := context.Background()

	tk, err := s.CreateTicketForCustomer(ctx, TicketRequest{
		ScreeningID: sc.ID, Seats: seats(t, "A1"), FirstName: "Ada", LastName: "Lovelace",
	})
	require.NoError(t, err)
	res, err := s.ChangeTicket(ctx, tk.ID, sc.ID, seats(t, "A2"))
	require.NoError(t, err)
	require.True(t, s.MarkUsed(ctx, res.Ticket.ID))
	require.True(t, s.CancelTicket(ctx, res.Ticket.ID))
	s.Wait()

	assert.ElementsMatch(t, []queue.EventType{
		queue.TicketIssued, queue.TicketChanged, queue.TicketUsed, queue.TicketCancelled,
	}, pub.types())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, ev := range pub.events {
		if ev.Type == queue.TicketChanged {
			assert.Equal(t, tk.ID, ev.PreviousTicketID)
			assert.Equal(t, []string{"A2"}, ev.Seats)
			assert.Equal(t, "Ada Lovelace", ev.Customer)
		}
	}
}

func TestCanManage(t *testing.T) {
	owner := &model.User{ID: "u1", Role: model.RoleRegular}
	other := &model.User{ID: "u2", Role: model.RoleRegular}
	cashier := &model.User{ID: "c1", Role: model.RoleCashier}
	owned := &model.Ticket{ID: "t1", OwnerID: "u1"}
	counter := &model.Ticket{ID: "t2"}

	assert.True(t, CanManage(owner, owned))
	assert.False(t, CanManage(other, owned))
	assert.False(t, CanManage(owner, counter))
	assert.True(t, CanManage(cashier, counter))
	assert.False(t, CanManage(nil, owned))
}
