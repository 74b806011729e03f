package remote

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// UserRecord is the persisted shape of a user.
type UserRecord struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Credential string `json:"credential"`
	Role       string `json:"role"`
}

// MovieRecord is the persisted shape of a movie without its screenings.
type MovieRecord struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Genre           string `json:"genre"`
	DurationMinutes int    `json:"durationMinutes"`
	PosterRef       string `json:"posterRef"`
	Rating          string `json:"rating"`
}

// ScreeningRecord is the persisted shape of a screening. ReservedSeats is a
// report of the grid at write time; seat ownership is rebuilt from tickets.
type ScreeningRecord struct {
	ID            string            `json:"id"`
	MovieID       string            `json:"movieId"`
	MovieTitle    string            `json:"movieTitle"`
	Date          string            `json:"date"`
	Time          string            `json:"time"`
	Hall          string            `json:"hall"`
	Price         decimal.Decimal   `json:"price"`
	TotalRows     int               `json:"totalRows"`
	SeatsPerRow   int               `json:"seatsPerRow"`
	ReservedSeats []string          `json:"reservedSeats"`
	RowTypes      map[string]string `json:"rowTypes,omitempty"`
}

// TicketRecord is the persisted shape of a ticket.
type TicketRecord struct {
	ID                string          `json:"id"`
	ScreeningID       string          `json:"screeningId"`
	MovieTitle        string          `json:"movieTitle"`
	ScreeningDate     string          `json:"screeningDate"`
	ScreeningTime     string          `json:"screeningTime"`
	Hall              string          `json:"hall"`
	CustomerFirstName string          `json:"customerFirstName"`
	CustomerLastName  string          `json:"customerLastName"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	Used              bool            `json:"used"`
	PurchaseTimestamp time.Time       `json:"purchaseTimestamp"`
	Seats             []string        `json:"seats"`
	UserID            string          `json:"userId,omitempty"`
}

// Catalog is everything a read-through refresh pulls in one go.
type Catalog struct {
	Movies     []MovieRecord
	Screenings []ScreeningRecord
	Tickets    []TicketRecord
}

func UserToRecord(u *model.User) UserRecord {
	return UserRecord{
		ID:         u.ID,
		Email:      model.NormalizeEmail(u.Email),
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		Credential: u.Credential,
		Role:       string(u.Role),
	}
}

func (r UserRecord) User() *model.User {
	return &model.User{
		ID:         r.ID,
		Email:      model.NormalizeEmail(r.Email),
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Phone:      r.Phone,
		Credential: r.Credential,
		Role:       model.ParseRole(r.Role),
	}
}

func MovieToRecord(m *model.Movie) MovieRecord {
	return MovieRecord{
		ID:              m.ID,
		Title:           m.Title,
		Description:     m.Description,
		Genre:           m.Genre,
		DurationMinutes: m.DurationMinutes,
		PosterRef:       m.PosterRef,
		Rating:          m.Rating,
	}
}

// Movie builds a movie with no screenings.
func (r MovieRecord) Movie() *model.Movie {
	return &model.Movie{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Genre:           r.Genre,
		DurationMinutes: r.DurationMinutes,
		PosterRef:       r.PosterRef,
		Rating:          r.Rating,
	}
}

func ScreeningToRecord(s *model.Screening) ScreeningRecord {
	rec := ScreeningRecord{
		ID:            s.ID,
		MovieID:       s.MovieID,
		MovieTitle:    s.MovieTitle,
		Date:          s.DateString(),
		Time:          s.TimeString(),
		Hall:          s.Hall,
		Price:         s.Price,
		TotalRows:     s.Grid.Rows(),
		SeatsPerRow:   s.Grid.SeatsPerRow(),
		ReservedSeats: []string{},
	}
	for _, seat := range s.Grid.ReservedSeats() {
		rec.ReservedSeats = append(rec.ReservedSeats, seat.Label())
	}
	for _, seat := range s.Grid.Seats() {
		if seat.Number == 1 && seat.Type != model.SeatRegular {
			if rec.RowTypes == nil {
				rec.RowTypes = make(map[string]string)
			}
			rec.RowTypes[seat.Row] = string(seat.Type)
		}
	}
	return rec
}

// Screening rebuilds a screening for movie with an empty grid.
func (r ScreeningRecord) Screening(movie *model.Movie) (*model.Screening, error) {
	day, err := model.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("screening %s date: %w", r.ID, err)
	}
	startsAt, err := model.At(day, r.Time)
	if err != nil {
		return nil, fmt.Errorf("screening %s time: %w", r.ID, err)
	}
	layout := model.Layout{Rows: r.TotalRows, SeatsPerRow: r.SeatsPerRow}
	if layout.Rows == 0 || layout.SeatsPerRow == 0 {
		layout = model.DefaultLayout()
	}
	for row, t := range r.RowTypes {
		if st, ok := model.ParseSeatType(t); ok {
			if layout.RowTypes == nil {
				layout.RowTypes = make(map[string]model.SeatType)
			}
			layout.RowTypes[row] = st
		}
	}
	s, err := model.NewScreening(r.ID, movie, startsAt, r.Hall, r.Price, layout)
	if err != nil {
		return nil, fmt.Errorf("screening %s: %w", r.ID, err)
	}
	return s, nil
}

func TicketToRecord(t *model.Ticket) TicketRecord {
	return TicketRecord{
		ID:                t.ID,
		ScreeningID:       t.ScreeningID,
		MovieTitle:        t.MovieTitle,
		ScreeningDate:     t.StartsAt.Format(model.DateLayout),
		ScreeningTime:     t.StartsAt.Format(model.TimeLayout),
		Hall:              t.Hall,
		CustomerFirstName: t.FirstName,
		CustomerLastName:  t.LastName,
		TotalPrice:        t.TotalPrice,
		Used:              t.Used(),
		PurchaseTimestamp: t.PurchasedAt,
		Seats:             t.SeatLabels(),
		UserID:            t.OwnerID,
	}
}

// Ticket rebuilds a ticket against s, reserving its seats in s's grid. The
// stored total price is kept as is.
func (r TicketRecord) Ticket(s *model.Screening) (*model.Ticket, error) {
	keys, err := model.ParseSeatLabels(r.Seats)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", r.ID, err)
	}
	seats, err := s.Grid.Validate(keys)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", r.ID, err)
	}
	if err := s.Grid.ReserveAll(keys); err != nil {
		return nil, fmt.Errorf("ticket %s: %w", r.ID, err)
	}
	t := model.NewTicket(r.ID, s, seats, r.CustomerFirstName, r.CustomerLastName, r.UserID, r.PurchaseTimestamp)
	t.TotalPrice = r.TotalPrice
	t.SetUsed(r.Used)
	return t, nil
}
