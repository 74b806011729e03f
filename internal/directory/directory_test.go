package directory_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/model"
)

var day = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func seedMovie(t *testing.T, d *directory.Directory, id string, screenings int) *model.Movie {
	t.Helper()
	m := &model.Movie{ID: id, Title: "Movie " + id}
	for i := 0; i < screenings; i++ {
		s, err := model.NewScreening(fmt.Sprintf("%s-s%d", id, i), m, day.Add(time.Duration(10+i)*time.Hour), "Hall 1", decimal.NewFromInt(10), model.DefaultLayout())
		require.NoError(t, err)
		m.AddScreening(s)
	}
	require.NoError(t, d.Update(func(tx *directory.Tx) error { return tx.InsertMovie(m) }))
	return m
}

func issue(t *testing.T, d *directory.Directory, id, screeningID, owner string) {
	t.Helper()
	var s *model.Screening
	d.View(func(r directory.Reader) { s, _ = r.Screening(screeningID) })
	require.NotNil(t, s)
	tk := model.NewTicket(id, s, nil, "Ada", "Lovelace", owner, time.Now())
	require.NoError(t, d.Update(func(tx *directory.Tx) error { return tx.InsertTicket(tk) }))
}

func TestDirectory_UsersUniqueByEmail(t *testing.T) {
	d := directory.New()
	u := &model.User{ID: "u1", Email: "Ada@Example.com", FirstName: "Ada"}

	require.NoError(t, d.Update(func(tx *directory.Tx) error { return tx.InsertUser(u) }))
	err := d.Update(func(tx *directory.Tx) error {
		return tx.InsertUser(&model.User{ID: "u2", Email: "ada@example.com", FirstName: "Eve"})
	})
	assert.ErrorIs(t, err, directory.ErrExists)

	d.View(func(r directory.Reader) {
		got, ok := r.User("ADA@example.com")
		require.True(t, ok)
		assert.Equal(t, "Ada", got.FirstName)
		byID, ok := r.UserByID("u1")
		require.True(t, ok)
		assert.Same(t, u, byID)
		assert.Len(t, r.Users(), 1)
	})
}

func TestDirectory_DeleteMovieCascades(t *testing.T) {
	d := directory.New()
	m := seedMovie(t, d, "m1", 3)
	other := seedMovie(t, d, "m2", 1)
	issue(t, d, "t1", "m1-s0", "")
	issue(t, d, "t2", "m1-s0", "")
	issue(t, d, "t3", "m1-s2", "")
	issue(t, d, "t4", "m2-s0", "")

	var c directory.Cascade
	var ok bool
	require.NoError(t, d.Update(func(tx *directory.Tx) error {
		c, ok = tx.DeleteMovie(m.ID)
		return nil
	}))
	require.True(t, ok)
	assert.Len(t, c.Screenings, 3)
	assert.Len(t, c.Tickets, 3)

	d.View(func(r directory.Reader) {
		_, found := r.Movie("m1")
		assert.False(t, found)
		for _, s := range m.Screenings() {
			_, found := r.Screening(s.ID)
			assert.False(t, found)
			assert.Empty(t, r.TicketsForScreening(s.ID))
		}
		assert.Len(t, r.Tickets(), 1)
		_, found = r.Movie(other.ID)
		assert.True(t, found)
	})

	require.NoError(t, d.Update(func(tx *directory.Tx) error {
		_, ok = tx.DeleteMovie(m.ID)
		return nil
	}))
	assert.False(t, ok)
}

func TestDirectory_DeleteScreening(t *testing.T) {
	d := directory.New()
	m := seedMovie(t, d, "m1", 2)
	issue(t, d, "t1", "m1-s1", "")

	require.NoError(t, d.Update(func(tx *directory.Tx) error {
		c, ok := tx.DeleteScreening("m1-s1")
		require.True(t, ok)
		assert.Len(t, c.Tickets, 1)
		return nil
	}))
	assert.Len(t, m.Screenings(), 1)
	d.View(func(r directory.Reader) { assert.Empty(t, r.Tickets()) })
}

func TestDirectory_TicketOwnership(t *testing.T) {
	d := directory.New()
	seedMovie(t, d, "m1", 1)
	require.NoError(t, d.Update(func(tx *directory.Tx) error {
		return tx.InsertUser(&model.User{ID: "u1", Email: "u1@example.com"})
	}))

	issue(t, d, "t1", "m1-s0", "u1")
	issue(t, d, "t2", "m1-s0", "")
	issue(t, d, "t3", "m1-s0", "ghost")

	d.View(func(r directory.Reader) {
		owned := r.TicketsOwnedBy("u1")
		require.Len(t, owned, 1)
		assert.Equal(t, "t1", owned[0].ID)
		assert.Empty(t, r.TicketsOwnedBy("ghost"))
	})

	require.NoError(t, d.Update(func(tx *directory.Tx) error {
		_, ok := tx.DeleteTicket("t1")
		assert.True(t, ok)
		_, ok = tx.DeleteTicket("t1")
		assert.False(t, ok)
		return nil
	}))
	d.View(func(r directory.Reader) { assert.Empty(t, r.TicketsOwnedBy("u1")) })
}

func TestDirectory_InsertTicketNeedsScreening(t *testing.T) {
	d := directory.New()
	m := seedMovie(t, d, "m1", 1)
	s := m.Screenings()[0]
	require.NoError(t, d.Update(func(tx *directory.Tx) error {
		_, ok := tx.DeleteMovie(m.ID)
		assert.True(t, ok)
		return nil
	}))

	err := d.Update(func(tx *directory.Tx) error {
		return tx.InsertTicket(model.NewTicket("late", s, nil, "A", "B", "", time.Now()))
	})
	assert.ErrorIs(t, err, directory.ErrScreeningMissing)
}

func TestDirectory_ConcurrentAccess(t *testing.T) {
	d := directory.New()
	seedMovie(t, d, "m1", 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			issue(t, d, fmt.Sprintf("t%d", i), "m1-s0", "")
		}(i)
		go func() {
			defer wg.Done()
			d.View(func(r directory.Reader) { _ = r.TicketsForScreening("m1-s0") })
		}()
	}
	wg.Wait()

	d.View(func(r directory.Reader) { assert.Len(t, r.TicketsForScreening("m1-s0"), 20) })
}
