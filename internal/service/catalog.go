package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking/internal/directory"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/remote"
)

// ScreeningInput describes one showing. End is optional; when given it must
// be after Start.
type ScreeningInput struct {
	Date  time.Time       `json:"date" validate:"required"`
	Start string          `json:"start" validate:"required,clock"`
	End   string          `json:"end" validate:"omitempty,clock"`
	Hall  string          `json:"hall" validate:"required"`
	Price decimal.Decimal `json:"price"`
}

func (in ScreeningInput) validate() (time.Time, error) {
	if err := check(in); err != nil {
		return time.Time{}, err
	}
	if in.Price.IsNegative() {
		return time.Time{}, invalid("price", "must not be negative")
	}
	startsAt, err := model.At(in.Date, in.Start)
	if err != nil {
		return time.Time{}, invalid("start", "must be a time of day as HH:MM")
	}
	if in.End != "" {
		endsAt, err := model.At(in.Date, in.End)
		if err != nil || !endsAt.After(startsAt) {
			return time.Time{}, invalid("end", "must be after start")
		}
	}
	return startsAt, nil
}

// MovieInput is a new movie together with its first screening.
type MovieInput struct {
	Title           string         `json:"title" validate:"required"`
	Description     string         `json:"description"`
	Genre           string         `json:"genre"`
	DurationMinutes int            `json:"duration_minutes" validate:"gt=0"`
	PosterRef       string         `json:"poster_ref"`
	Rating          string         `json:"rating"`
	Screening       ScreeningInput `json:"screening"`
}

// MoviesWithScreeningsOn refreshes the catalog from the remote store and
// returns the movies showing on day, in title order.
func (s *BookingService) MoviesWithScreeningsOn(ctx context.Context, day time.Time) []*model.Movie {
	s.refreshCatalog(ctx)
	var out []*model.Movie
	s.dir.View(func(r directory.Reader) {
		for _, m := range r.Movies() {
			if len(m.ScreeningsOn(day)) > 0 {
				out = append(out, m)
			}
		}
	})
	return out
}

func (s *BookingService) AllMovies(ctx context.Context) []*model.Movie {
	s.refreshCatalog(ctx)
	var out []*model.Movie
	s.dir.View(func(r directory.Reader) { out = r.Movies() })
	return out
}

func (s *BookingService) Movie(id string) (*model.Movie, error) {
	var (
		m  *model.Movie
		ok bool
	)
	s.dir.View(func(r directory.Reader) { m, ok = r.Movie(id) })
	if !ok {
		return nil, ErrMovieNotFound
	}
	return m, nil
}

func (s *BookingService) Screening(id string) (*model.Screening, error) {
	var (
		sc *model.Screening
		ok bool
	)
	s.dir.View(func(r directory.Reader) { sc, ok = r.Screening(id) })
	if !ok {
		return nil, ErrScreeningNotFound
	}
	return sc, nil
}

// ScreeningsOn lists every screening on day ordered by start time.
func (s *BookingService) ScreeningsOn(ctx context.Context, day time.Time) []*model.Screening {
	s.refreshCatalog(ctx)
	var out []*model.Screening
	s.dir.View(func(r directory.Reader) {
		for _, sc := range r.Screenings() {
			if sc.On(day) {
				out = append(out, sc)
			}
		}
	})
	return out
}

// SeatMap is a snapshot of every seat of the screening with its state.
func (s *BookingService) SeatMap(screeningID string) ([]model.Seat, error) {
	sc, err := s.Screening(screeningID)
	if err != nil {
		return nil, err
	}
	return sc.Grid.Seats(), nil
}

// AddMovie creates the movie with its first screening and writes both
// through.
func (s *BookingService) AddMovie(ctx context.Context, in MovieInput) (*model.Movie, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := check(in); err != nil {
		return nil, err
	}
	startsAt, err := in.Screening.validate()
	if err != nil {
		return nil, err
	}

	m := &model.Movie{
		ID:              s.newID(),
		Title:           in.Title,
		Description:     in.Description,
		Genre:           in.Genre,
		DurationMinutes: in.DurationMinutes,
		PosterRef:       in.PosterRef,
		Rating:          in.Rating,
	}
	sc, err := model.NewScreening(s.newID(), m, startsAt, in.Screening.Hall, in.Screening.Price, s.layout)
	if err != nil {
		return nil, err
	}
	m.AddScreening(sc)

	err = s.dir.Update(func(tx *directory.Tx) error {
		if _, ok := tx.MovieByTitle(m.Title); ok {
			return ErrTitleTaken
		}
		if err := tx.InsertMovie(m); err != nil {
			return err
		}
		track(ctx, s, "save_movie", m.ID, s.store.SaveMovie(ctx, m))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).WithFields(logrus.Fields{"movie_id": m.ID, "title": m.Title}).Info("movie added")
	return m, nil
}

// AddScreeningToMovie attaches a new screening to an existing movie.
func (s *BookingService) AddScreeningToMovie(ctx context.Context, movieID string, in ScreeningInput) (*model.Screening, error) {
	startsAt, err := in.validate()
	if err != nil {
		return nil, err
	}
	m, err := s.Movie(movieID)
	if err != nil {
		return nil, err
	}
	sc, err := model.NewScreening(s.newID(), m, startsAt, in.Hall, in.Price, s.layout)
	if err != nil {
		return nil, err
	}
	err = s.dir.Update(func(tx *directory.Tx) error {
		if err := tx.AttachScreening(sc); err != nil {
			return err
		}
		track(ctx, s, "save_screening", sc.ID, s.store.SaveScreening(ctx, sc))
		return nil
	})
	if errors.Is(err, directory.ErrMovieMissing) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// DeleteMovie removes the movie with all its screenings and their tickets.
func (s *BookingService) DeleteMovie(ctx context.Context, id string) bool {
	var (
		c  directory.Cascade
		ok bool
	)
	_ = s.dir.Update(func(tx *directory.Tx) error {
		if c, ok = tx.DeleteMovie(id); ok {
			track(ctx, s, "delete_movie", id, s.store.DeleteMovie(ctx, id))
		}
		return nil
	})
	if !ok {
		return false
	}
	s.logger(ctx).WithFields(logrus.Fields{
		"movie_id":   id,
		"screenings": len(c.Screenings),
		"tickets":    len(c.Tickets),
	}).Info("movie deleted")
	return true
}

// DeleteScreening removes the screening and its tickets.
func (s *BookingService) DeleteScreening(ctx context.Context, id string) bool {
	var (
		c  directory.Cascade
		ok bool
	)
	_ = s.dir.Update(func(tx *directory.Tx) error {
		if c, ok = tx.DeleteScreening(id); ok {
			track(ctx, s, "delete_screening", id, s.store.DeleteScreening(ctx, id))
		}
		return nil
	})
	if !ok {
		return false
	}
	s.logger(ctx).WithFields(logrus.Fields{"screening_id": id, "tickets": len(c.Tickets)}).Info("screening deleted")
	return true
}

// refreshCatalog merges remote movies, screenings and tickets the directory
// does not know yet. Concurrent callers share one remote load. Any failure
// leaves the directory as it was.
func (s *BookingService) refreshCatalog(ctx context.Context) {
	if !s.store.Initialized() {
		return
	}
	_, err, _ := s.refresh.Do("catalog", func() (any, error) {
		cat, err := s.store.Catalog(ctx).AwaitTimeout(s.syncTimeout)
		if err != nil {
			return nil, err
		}
		s.mergeCatalog(ctx, cat)
		return nil, nil
	})
	s.metrics.Refresh(err)
	if err != nil {
		s.logger(ctx).WithError(err).Warn("catalog refresh failed, serving local directory")
	}
}

// mergeCatalog applies local-wins merging: a remote movie is skipped when its
// id or title is already known, a remote screening when its id is known or its
// movie is not in the directory. Tickets are restored only into screenings
// merged by this call, so local seat state is never overwritten.
func (s *BookingService) mergeCatalog(ctx context.Context, cat remote.Catalog) {
	l := s.logger(ctx)
	_ = s.dir.Update(func(tx *directory.Tx) error {
		for _, rec := range cat.Movies {
			if _, ok := tx.Movie(rec.ID); ok {
				continue
			}
			if _, ok := tx.MovieByTitle(rec.Title); ok {
				continue
			}
			_ = tx.InsertMovie(rec.Movie())
		}

		merged := make(map[string]*model.Screening)
		for _, rec := range cat.Screenings {
			if _, ok := tx.Screening(rec.ID); ok {
				continue
			}
			m, ok := tx.Movie(rec.MovieID)
			if !ok {
				continue
			}
			sc, err := rec.Screening(m)
			if err != nil {
				l.WithError(err).Warn("skipping remote screening")
				continue
			}
			if err := tx.AttachScreening(sc); err == nil {
				merged[sc.ID] = sc
			}
		}

		for _, rec := range cat.Tickets {
			sc, ok := merged[rec.ScreeningID]
			if !ok {
				continue
			}
			if _, ok := tx.Ticket(rec.ID); ok {
				continue
			}
			t, err := rec.Ticket(sc)
			if err != nil {
				l.WithError(err).Warn("skipping remote ticket")
				continue
			}
			_ = tx.InsertTicket(t)
		}
		return nil
	})
}
