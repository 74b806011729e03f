package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/remote"
)

func TestRegisterUser_Validation(t *testing.T) {
	s := newOffline()
	cases := map[string]struct {
		reg   Registration
		field string
	}{
		"bad email":     {Registration{Email: "nope", FirstName: "Ada", LastName: "Lovelace", Phone: "5551234567", Credential: "secret1"}, "email"},
		"short name":    {Registration{Email: "a@b.io", FirstName: " A ", LastName: "Lovelace", Phone: "5551234567", Credential: "secret1"}, "first_name"},
		"short phone":   {Registration{Email: "a@b.io", FirstName: "Ada", LastName: "Lovelace", Phone: "555-1234", Credential: "secret1"}, "phone"},
		"letters phone": {Registration{Email: "a@b.io", FirstName: "Ada", LastName: "Lovelace", Phone: "555123456x", Credential: "secret1"}, "phone"},
		"short secret":  {Registration{Email: "a@b.io", FirstName: "Ada", LastName: "Lovelace", Phone: "5551234567", Credential: "12345"}, "password"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.RegisterUser(context.Background(), tc.reg)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
	assert.Empty(t, s.AllUsers(context.Background()))
}

func TestRegisterAndLogin(t *testing.T) {
	s := newOffline()
	ctx := context.Background()
	u := register(t, s, "Ada@Example.com")

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, model.RoleRegular, u.Role)
	assert.True(t, s.IsEmailRegistered("ADA@example.com"))

	_, err := s.RegisterUser(ctx, Registration{
		Email: "ada@example.com", FirstName: "Ada", LastName: "Byron", Phone: "5551234567", Credential: "secret2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	got, err := s.Login(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Same(t, u, got)

	_, err = s.Login(ctx, "ada@example.com", "wrong!")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddUser_Roles(t *testing.T) {
	s := newOffline()
	reg := Registration{Email: "till@cinema.com", FirstName: "Till", LastName: "Clerk", Phone: "5551234567", Credential: "cashier1"}

	_, err := s.AddUser(context.Background(), reg, model.RoleGuest)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	u, err := s.AddUser(context.Background(), reg, model.RoleCashier)
	require.NoError(t, err)
	assert.True(t, u.IsStaff())
}

func TestLogin_FallsBackToRemote(t *testing.T) {
	b := newMemBackend()
	b.users["remote@example.com"] = remote.UserRecord{
		ID: "u-remote", Email: "remote@example.com", FirstName: "Grace", LastName: "Hopper",
		Phone: "5551234567", Credential: "cobol60", Role: "REGULAR_USER",
	}
	s := newOnline(b)

	u, err := s.Login(context.Background(), "remote@example.com", "cobol60")
	require.NoError(t, err)
	assert.Equal(t, "u-remote", u.ID)
	assert.True(t, s.IsEmailRegistered("remote@example.com"))

	byID, ok := s.UserByID("u-remote")
	require.True(t, ok)
	assert.Same(t, u, byID)
}

func TestLogin_SlowRemoteDegradesToNotFound(t *testing.T) {
	b := newMemBackend()
	b.delay = time.Second
	s := newOnline(b, WithSyncTimeout(30*time.Millisecond))

	start := time.Now()
	_, err := s.Login(context.Background(), "someone@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRegisterUser_WritesThrough(t *testing.T) {
	b := newMemBackend()
	s := newOnline(b)
	u := register(t, s, "ada@example.com")
	s.Wait()

	rec, ok := b.users["ada@example.com"]
	require.True(t, ok)
	assert.Equal(t, u.ID, rec.ID)
	assert.Equal(t, "REGULAR_USER", rec.Role)

	_, err := s.RegisterUser(context.Background(), Registration{
		Email: "ada@example.com", FirstName: "Ada", LastName: "Byron", Phone: "5551234567", Credential: "secret2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUser_RejectsEmailKnownOnlyRemotely(t *testing.T) {
	b := newMemBackend()
	b.users["taken@example.com"] = remote.UserRecord{ID: "u9", Email: "taken@example.com", Role: "REGULAR_USER"}
	s := newOnline(b)

	_, err := s.RegisterUser(context.Background(), Registration{
		Email: "taken@example.com", FirstName: "Ada", LastName: "Lovelace", Phone: "5551234567", Credential: "secret1",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAllUsers_MergesRemoteAndSkipsGuests(t *testing.T) {
	b := newMemBackend()
	b.users["grace@example.com"] = remote.UserRecord{ID: "u-grace", Email: "grace@example.com", Role: "REGULAR_USER"}
	b.users["ghost@example.com"] = remote.UserRecord{ID: "u-ghost", Email: "ghost@example.com", Role: "GUEST"}
	s := newOnline(b)
	register(t, s, "ada@example.com")

	var emails []string
	for _, u := range s.AllUsers(context.Background()) {
		emails = append(emails, u.Email)
	}
	assert.ElementsMatch(t, []string{"ada@example.com", "grace@example.com"}, emails)
}

func TestDeleteUser_KeepsTickets(t *testing.T) {
	b := newMemBackend()
	s := newOnline(b)
	_, sc := addMovie(t, s, "Oppenheimer", "12.50")
	u := register(t, s, "ada@example.com")
	tk, err := s.CreateTicket(context.Background(), u, TicketRequest{ScreeningID: sc.ID, Seats: seats(t, "A1")})
	require.NoError(t, err)
	s.Wait()

	assert.True(t, s.DeleteUser(context.Background(), "ada@example.com"))
	assert.False(t, s.DeleteUser(context.Background(), "ada@example.com"))
	s.Wait()

	_, err = s.Ticket(tk.ID)
	assert.NoError(t, err)
	assert.True(t, reserved(sc, "A1"))
	assert.Empty(t, s.CurrentUserTickets(u))
	assert.Equal(t, 0, b.count(func() int { return len(b.users) }))
}
