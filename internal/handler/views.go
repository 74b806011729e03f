package handler

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// JSON shapes returned by the API. Money is rendered with two decimals.

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
}

func newUserView(u *model.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      string(u.Role),
	}
}

type screeningView struct {
	ID         string `json:"id"`
	MovieID    string `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Hall       string `json:"hall"`
	Price      string `json:"price"`
	Available  int    `json:"available_seats"`
	Capacity   int    `json:"capacity"`
}

func newScreeningView(s *model.Screening) screeningView {
	return screeningView{
		ID:         s.ID,
		MovieID:    s.MovieID,
		MovieTitle: s.MovieTitle,
		Date:       s.DateString(),
		Time:       s.TimeString(),
		Hall:       s.Hall,
		Price:      s.Price.StringFixed(2),
		Available:  len(s.Grid.AvailableSeats()),
		Capacity:   s.Grid.Capacity(),
	}
}

func screeningViews(list []*model.Screening) []screeningView {
	out := make([]screeningView, 0, len(list))
	for _, s := range list {
		out = append(out, newScreeningView(s))
	}
	return out
}

type movieView struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Genre           string          `json:"genre,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	Duration        string          `json:"duration"`
	PosterRef       string          `json:"poster_ref,omitempty"`
	Rating          string          `json:"rating,omitempty"`
	Screenings      []screeningView `json:"screenings"`
}

// newMovieView renders m with the given screenings, which may be a subset
// such as one day's showings.
func newMovieView(m *model.Movie, screenings []*model.Screening) movieView {
	return movieView{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Genre:           m.Genre,
		DurationMinutes: m.DurationMinutes,
		Duration:        m.FormattedDuration(),
		PosterRef:       m.PosterRef,
		Rating:          m.Rating,
		Screenings:      screeningViews(screenings),
	}
}

type ticketView struct {
	ID          string    `json:"id"`
	ScreeningID string    `json:"screening_id"`
	MovieTitle  string    `json:"movie_title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Hall        string    `json:"hall"`
	Seats       []string  `json:"seats"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	OwnerID     string    `json:"owner_id,omitempty"`
	PurchasedAt time.Time `json:"purchased_at"`
	TotalPrice  string    `json:"total_price"`
	Used        bool      `json:"used"`
}

func newTicketView(t *model.Ticket) ticketView {
	return ticketView{
		ID:          t.ID,
		ScreeningID: t.ScreeningID,
		MovieTitle:  t.MovieTitle,
		Date:        t.StartsAt.Format(model.DateLayout),
		Time:        t.StartsAt.Format(model.TimeLayout),
		Hall:        t.Hall,
		Seats:       t.SeatLabels(),
		FirstName:   t.FirstName,
		LastName:    t.LastName,
		OwnerID:     t.OwnerID,
		PurchasedAt: t.PurchasedAt,
		TotalPrice:  t.TotalPrice.StringFixed(2),
		Used:        t.Used(),
	}
}

func ticketViews(list []*model.Ticket) []ticketView {
	out := make([]ticketView, 0, len(list))
	for _, t := range list {
		out = append(out, newTicketView(t))
	}
	return out
}
