package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/remote"
)

type MovieRepo struct{ DB *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

const movieColumns = "id,title,description,genre,duration_minutes,poster_ref,rating"

func (r *MovieRepo) SaveMovie(ctx context.Context, m remote.MovieRecord) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO movies ("+movieColumns+") VALUES (?,?,?,?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE title=VALUES(title),description=VALUES(description),genre=VALUES(genre),"+
			"duration_minutes=VALUES(duration_minutes),poster_ref=VALUES(poster_ref),rating=VALUES(rating)",
		m.ID, m.Title, m.Description, m.Genre, m.DurationMinutes, m.PosterRef, m.Rating)
	if isDuplicate(err) {
		return fmt.Errorf("save movie %q: %w", m.Title, ErrConflict)
	}
	return err
}

// CreateMovieIfAbsent relies on the unique title key.
func (r *MovieRepo) CreateMovieIfAbsent(ctx context.Context, m remote.MovieRecord) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO movies ("+movieColumns+") VALUES (?,?,?,?,?,?,?)",
		m.ID, m.Title, m.Description, m.Genre, m.DurationMinutes, m.PosterRef, m.Rating)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteMovie removes the movie, its screenings and their tickets in one transaction.
func (r *MovieRepo) DeleteMovie(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		"DELETE t FROM tickets t JOIN screenings s ON t.screening_id = s.id WHERE s.movie_id=?",
		"DELETE FROM screenings WHERE movie_id=?",
		"DELETE FROM movies WHERE id=?",
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete movie %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (r *MovieRepo) ListMovies(ctx context.Context) ([]remote.MovieRecord, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []remote.MovieRecord
	for rows.Next() {
		var m remote.MovieRecord
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.DurationMinutes, &m.PosterRef, &m.Rating); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
