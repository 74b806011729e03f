package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeedDays is how many days of screenings sample movies get, starting today.
const SeedDays = 7

type seedShow struct {
	clock string
	price string
}

type seedInfo struct {
	Title, Description, Genre string
	DurationMinutes           int
	PosterRef, Rating         string
}

type seedMovie struct {
	movie seedInfo
	hall  string
	shows []seedShow
}

var seedUsers = []model.User{
	{Email: "admin@cinema.com", FirstName: "Admin", LastName: "User", Phone: "1234567890", Credential: "admin123", Role: model.RoleAdmin},
	{Email: "cashier@cinema.com", FirstName: "Cashier", LastName: "User", Phone: "0987654321", Credential: "cashier123", Role: model.RoleCashier},
}

var seedMovies = []seedMovie{
	{
		movie: seedInfo{
			Title:           "Oppenheimer",
			Description:     "The story of American scientist J. Robert Oppenheimer and his role in the development of the atomic bomb.",
			Genre:           "Drama/History",
			DurationMinutes: 180,
			PosterRef:       "https://www.themoviedb.org/t/p/w1280/efoCIdMmNgSdOlsNwovGxByjlOR.jpg",
			Rating:          "R",
		},
		hall:  "Hall 1",
		shows: []seedShow{{"10:00", "12.50"}, {"14:30", "12.50"}, {"19:00", "15.00"}},
	},
	{
		movie: seedInfo{
			Title:           "Captain America: Civil War",
			Description:     "Political involvement in the Avengers' affairs causes a rift between Captain America and Iron Man.",
			Genre:           "Action/Sci-Fi",
			DurationMinutes: 147,
			PosterRef:       "https://www.themoviedb.org/t/p/w1280/hkQjebnRQ0XjGRqDPqy9rt4taeI.jpg",
			Rating:          "PG-13",
		},
		hall:  "Hall 2",
		shows: []seedShow{{"11:00", "11.00"}, {"15:00", "11.00"}, {"20:00", "13.50"}},
	},
	{
		movie: seedInfo{
			Title:           "The Dark Knight",
			Description:     "When the menace known as the Joker wreaks havoc on Gotham, Batman must face one of the greatest tests.",
			Genre:           "Action/Crime",
			DurationMinutes: 152,
			PosterRef:       "https://www.themoviedb.org/t/p/w1280/bTOmCkefIK8YNhQNe3IOSueYGNZ.jpg",
			Rating:          "PG-13",
		},
		hall:  "Hall 3",
		shows: []seedShow{{"12:00", "10.00"}, {"16:30", "10.00"}, {"21:00", "12.00"}},
	},
}

// SeedSampleData installs the staff accounts and the sample movies with a
// week of screenings from today. Anything already present locally or
// remotely, matched by email or title, is left alone, so seeding is safe to
// repeat and to run from several processes at once.
func (s *BookingService) SeedSampleData(ctx context.Context, today time.Time) error {
	s.refreshCatalog(ctx)

	for _, proto := range seedUsers {
		if s.IsEmailRegistered(proto.Email) || s.fetchUser(ctx, proto.Email) != nil {
			continue
		}
		u := proto
		u.ID = s.newID()
		_ = s.dir.Update(func(tx *directory.Tx) error {
			if err := tx.InsertUser(&u); err != nil {
				return err
			}
			track(ctx, s, "seed_user", u.Email, s.store.SaveUserIfAbsent(ctx, &u))
			return nil
		})
	}

	day := model.DateOf(today)
	for _, sm := range seedMovies {
		m, err := s.seedMovie(sm, day)
		if err != nil {
			return err
		}
		err = s.dir.Update(func(tx *directory.Tx) error {
			if _, ok := tx.MovieByTitle(m.Title); ok {
				return directory.ErrExists
			}
			if err := tx.InsertMovie(m); err != nil {
				return err
			}
			s.seedRemote(ctx, m)
			return nil
		})
		if err != nil {
			continue
		}
	}
	return nil
}

func (s *BookingService) seedMovie(sm seedMovie, day time.Time) (*model.Movie, error) {
	m := &model.Movie{
		ID:              s.newID(),
		Title:           sm.movie.Title,
		Description:     sm.movie.Description,
		Genre:           sm.movie.Genre,
		DurationMinutes: sm.movie.DurationMinutes,
		PosterRef:       sm.movie.PosterRef,
		Rating:          sm.movie.Rating,
	}
	for i := 0; i < SeedDays; i++ {
		date := day.AddDate(0, 0, i)
		for _, show := range sm.shows {
			startsAt, err := model.At(date, show.clock)
			if err != nil {
				return nil, fmt.Errorf("seed %s: %w", m.Title, err)
			}
			sc, err := model.NewScreening(s.newID(), m, startsAt, sm.hall, decimal.RequireFromString(show.price), s.layout)
			if err != nil {
				return nil, fmt.Errorf("seed %s: %w", m.Title, err)
			}
			m.AddScreening(sc)
		}
	}
	return m, nil
}

// seedRemote writes m only if no movie with its title is stored remotely.
func (s *BookingService) seedRemote(ctx context.Context, m *model.Movie) {
	f := s.store.SaveMovieIfAbsent(ctx, m)
	track(ctx, s, "seed_movie", m.ID, f)
	if !s.store.Initialized() {
		return
	}
	l := s.logger(ctx).WithFields(logrus.Fields{"movie_id": m.ID, "title": m.Title})
	s.pending.Add(1)
	f.Then(func(created bool, err error) {
		defer s.pending.Done()
		if err != nil {
			return
		}
		if created {
			l.Info("sample movie stored")
		} else {
			l.Debug("sample movie already stored remotely")
		}
	})
}
