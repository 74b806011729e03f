package model

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Movie is a catalog entry. It exclusively owns its screenings; the slice is
// guarded so screenings can be added while other goroutines read the movie.
type Movie struct {
	ID              string
	Title           string
	Description     string
	Genre           string
	DurationMinutes int
	PosterRef       string
	Rating          string

	mu         sync.RWMutex
	screenings []*Screening
}

// AddScreening appends s keeping the collection ordered by start time.
func (m *Movie) AddScreening(s *Screening) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screenings = append(m.screenings, s)
	sort.SliceStable(m.screenings, func(i, j int) bool {
		return m.screenings[i].StartsAt.Before(m.screenings[j].StartsAt)
	})
}

// RemoveScreening drops the screening with the given id and reports whether it was present.
func (m *Movie) RemoveScreening(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.screenings {
		if s.ID == id {
			m.screenings = append(m.screenings[:i], m.screenings[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Movie) Screenings() []*Screening {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Screening, len(m.screenings))
	copy(out, m.screenings)
	return out
}

func (m *Movie) ScreeningsOn(day time.Time) []*Screening {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Screening
	for _, s := range m.screenings {
		if s.On(day) {
			out = append(out, s)
		}
	}
	return out
}

// FormattedDuration renders e.g. "2h 32min" or "45min".
func (m *Movie) FormattedDuration() string {
	h, min := m.DurationMinutes/60, m.DurationMinutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dmin", h, min)
	}
	return fmt.Sprintf("%dmin", min)
}
