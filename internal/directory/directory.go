// Package directory holds the in-memory working set of the booking engine:
// users keyed by email, movies, screenings and tickets keyed by id. All
// access goes through View and Update so multi-table changes such as the
// movie cascade are never observed half done.
package directory

import (
	"errors"
	"sort"
	"sync"

	"github.com/iliyamo/cinema-booking/internal/model"
)

var (
	ErrExists           = errors.New("already exists")
	ErrMovieMissing     = errors.New("movie not in directory")
	ErrScreeningMissing = errors.New("screening not in directory")
)

// Directory is safe for concurrent use.
type Directory struct {
	mu sync.RWMutex

	users      map[string]*model.User // normalized email
	userEmails map[string]string      // user id -> email
	movies     map[string]*model.Movie
	screenings map[string]*model.Screening
	tickets    map[string]*model.Ticket
	owned      map[string]map[string]struct{} // user id -> ticket ids
}

func New() *Directory {
	return &Directory{
		users:      make(map[string]*model.User),
		userEmails: make(map[string]string),
		movies:     make(map[string]*model.Movie),
		screenings: make(map[string]*model.Screening),
		tickets:    make(map[string]*model.Ticket),
		owned:      make(map[string]map[string]struct{}),
	}
}

// Reader is the read-only view handed to View callbacks.
type Reader interface {
	User(email string) (*model.User, bool)
	UserByID(id string) (*model.User, bool)
	Users() []*model.User
	Movie(id string) (*model.Movie, bool)
	MovieByTitle(title string) (*model.Movie, bool)
	Movies() []*model.Movie
	Screening(id string) (*model.Screening, bool)
	Screenings() []*model.Screening
	Ticket(id string) (*model.Ticket, bool)
	Tickets() []*model.Ticket
	TicketsForScreening(screeningID string) []*model.Ticket
	TicketsOwnedBy(userID string) []*model.Ticket
}

// View runs fn under the shared lock.
func (d *Directory) View(fn func(r Reader)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(&Tx{d: d})
}

// Update runs fn under the exclusive lock. Changes made before fn returns an
// error are kept; callers check preconditions before mutating.
func (d *Directory) Update(fn func(tx *Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(&Tx{d: d})
}

// Tx gives access to all tables inside View or Update.
type Tx struct{ d *Directory }

func (tx *Tx) User(email string) (*model.User, bool) {
	u, ok := tx.d.users[model.NormalizeEmail(email)]
	return u, ok
}

func (tx *Tx) UserByID(id string) (*model.User, bool) {
	email, ok := tx.d.userEmails[id]
	if !ok {
		return nil, false
	}
	return tx.User(email)
}

func (tx *Tx) Users() []*model.User {
	out := make([]*model.User, 0, len(tx.d.users))
	for _, u := range tx.d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// InsertUser adds u unless its email or id is already known.
func (tx *Tx) InsertUser(u *model.User) error {
	key := model.NormalizeEmail(u.Email)
	if _, ok := tx.d.users[key]; ok {
		return ErrExists
	}
	if _, ok := tx.d.userEmails[u.ID]; ok {
		return ErrExists
	}
	tx.d.users[key] = u
	tx.d.userEmails[u.ID] = key
	// tickets restored before their owner was known
	for id, t := range tx.d.tickets {
		if t.OwnerID == u.ID {
			tx.link(u.ID, id)
		}
	}
	return nil
}

func (tx *Tx) link(userID, ticketID string) {
	set := tx.d.owned[userID]
	if set == nil {
		set = make(map[string]struct{})
		tx.d.owned[userID] = set
	}
	set[ticketID] = struct{}{}
}

// DeleteUser removes the account. Its tickets stay live but lose the owner link.
func (tx *Tx) DeleteUser(email string) (*model.User, bool) {
	key := model.NormalizeEmail(email)
	u, ok := tx.d.users[key]
	if !ok {
		return nil, false
	}
	delete(tx.d.users, key)
	delete(tx.d.userEmails, u.ID)
	delete(tx.d.owned, u.ID)
	return u, true
}

func (tx *Tx) Movie(id string) (*model.Movie, bool) {
	m, ok := tx.d.movies[id]
	return m, ok
}

func (tx *Tx) MovieByTitle(title string) (*model.Movie, bool) {
	for _, m := range tx.d.movies {
		if m.Title == title {
			return m, true
		}
	}
	return nil, false
}

func (tx *Tx) Movies() []*model.Movie {
	out := make([]*model.Movie, 0, len(tx.d.movies))
	for _, m := range tx.d.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// InsertMovie adds m together with the screenings it already owns.
func (tx *Tx) InsertMovie(m *model.Movie) error {
	if _, ok := tx.d.movies[m.ID]; ok {
		return ErrExists
	}
	tx.d.movies[m.ID] = m
	for _, s := range m.Screenings() {
		tx.d.screenings[s.ID] = s
	}
	return nil
}

// AttachScreening appends s to its movie and indexes it.
func (tx *Tx) AttachScreening(s *model.Screening) error {
	m, ok := tx.d.movies[s.MovieID]
	if !ok {
		return ErrMovieMissing
	}
	if _, ok := tx.d.screenings[s.ID]; ok {
		return ErrExists
	}
	m.AddScreening(s)
	tx.d.screenings[s.ID] = s
	return nil
}

// Cascade is what a movie or screening delete removed.
type Cascade struct {
	Movie      *model.Movie
	Screenings []*model.Screening
	Tickets    []*model.Ticket
}

// DeleteMovie removes the movie, its screenings and every ticket for them.
func (tx *Tx) DeleteMovie(id string) (Cascade, bool) {
	m, ok := tx.d.movies[id]
	if !ok {
		return Cascade{}, false
	}
	c := Cascade{Movie: m}
	for _, s := range m.Screenings() {
		c.Screenings = append(c.Screenings, s)
		c.Tickets = append(c.Tickets, tx.dropScreening(s.ID)...)
	}
	delete(tx.d.movies, id)
	return c, true
}

// DeleteScreening removes one screening from its movie and drops its tickets.
func (tx *Tx) DeleteScreening(id string) (Cascade, bool) {
	s, ok := tx.d.screenings[id]
	if !ok {
		return Cascade{}, false
	}
	if m, ok := tx.d.movies[s.MovieID]; ok {
		m.RemoveScreening(id)
		return Cascade{Movie: m, Screenings: []*model.Screening{s}, Tickets: tx.dropScreening(id)}, true
	}
	return Cascade{Screenings: []*model.Screening{s}, Tickets: tx.dropScreening(id)}, true
}

func (tx *Tx) dropScreening(id string) []*model.Ticket {
	var dropped []*model.Ticket
	for _, t := range tx.d.tickets {
		if t.ScreeningID == id {
			dropped = append(dropped, t)
		}
	}
	for _, t := range dropped {
		tx.DeleteTicket(t.ID)
	}
	delete(tx.d.screenings, id)
	return dropped
}

func (tx *Tx) Screening(id string) (*model.Screening, bool) {
	s, ok := tx.d.screenings[id]
	return s, ok
}

func (tx *Tx) Screenings() []*model.Screening {
	out := make([]*model.Screening, 0, len(tx.d.screenings))
	for _, s := range tx.d.screenings {
		out = append(out, s)
	}
	sortScreenings(out)
	return out
}

func (tx *Tx) Ticket(id string) (*model.Ticket, bool) {
	t, ok := tx.d.tickets[id]
	return t, ok
}

func (tx *Tx) Tickets() []*model.Ticket {
	return tx.collect(func(*model.Ticket) bool { return true })
}

func (tx *Tx) TicketsForScreening(screeningID string) []*model.Ticket {
	return tx.collect(func(t *model.Ticket) bool { return t.ScreeningID == screeningID })
}

func (tx *Tx) TicketsOwnedBy(userID string) []*model.Ticket {
	ids := tx.d.owned[userID]
	return tx.collect(func(t *model.Ticket) bool {
		_, ok := ids[t.ID]
		return ok
	})
}

func (tx *Tx) collect(keep func(*model.Ticket) bool) []*model.Ticket {
	var out []*model.Ticket
	for _, t := range tx.d.tickets {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PurchasedAt.Before(out[j].PurchasedAt)
	})
	return out
}

// InsertTicket stores t and links it to its owner when the owner is a known
// account. The screening must still be present.
func (tx *Tx) InsertTicket(t *model.Ticket) error {
	if _, ok := tx.d.screenings[t.ScreeningID]; !ok {
		return ErrScreeningMissing
	}
	if _, ok := tx.d.tickets[t.ID]; ok {
		return ErrExists
	}
	tx.d.tickets[t.ID] = t
	if t.OwnerID != "" {
		if _, ok := tx.d.userEmails[t.OwnerID]; ok {
			tx.link(t.OwnerID, t.ID)
		}
	}
	return nil
}

// DeleteTicket removes t from the table and from its owner's collection.
func (tx *Tx) DeleteTicket(id string) (*model.Ticket, bool) {
	t, ok := tx.d.tickets[id]
	if !ok {
		return nil, false
	}
	delete(tx.d.tickets, id)
	if set := tx.d.owned[t.OwnerID]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(tx.d.owned, t.OwnerID)
		}
	}
	return t, true
}

func sortScreenings(s []*model.Screening) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].StartsAt.Equal(s[j].StartsAt) {
			return s[i].ID < s[j].ID
		}
		return s[i].StartsAt.Before(s[j].StartsAt)
	})
}
