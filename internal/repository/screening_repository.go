package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/remote"
)

type ScreeningRepo struct{ DB *sql.DB }

func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{DB: db} }

const screeningColumns = "id,movie_id,movie_title,screening_date,screening_time,hall,price,total_rows,seats_per_row,reserved_seats,row_types"

func (r *ScreeningRepo) SaveScreening(ctx context.Context, s remote.ScreeningRecord) error {
	reserved, err := json.Marshal(nonNil(s.ReservedSeats))
	if err != nil {
		return err
	}
	rowTypes, err := json.Marshal(s.RowTypes)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO screenings ("+screeningColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE movie_title=VALUES(movie_title),screening_date=VALUES(screening_date),"+
			"screening_time=VALUES(screening_time),hall=VALUES(hall),price=VALUES(price),"+
			"reserved_seats=VALUES(reserved_seats),row_types=VALUES(row_types)",
		s.ID, s.MovieID, s.MovieTitle, s.Date, s.Time, s.Hall, s.Price, s.TotalRows, s.SeatsPerRow,
		string(reserved), string(rowTypes))
	return err
}

// DeleteScreening removes the screening and its tickets in one transaction.
func (r *ScreeningRepo) DeleteScreening(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tickets WHERE screening_id=?", id); err != nil {
		return fmt.Errorf("delete tickets of screening %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM screenings WHERE id=?", id); err != nil {
		return fmt.Errorf("delete screening %s: %w", id, err)
	}
	return tx.Commit()
}

func (r *ScreeningRepo) ListScreenings(ctx context.Context) ([]remote.ScreeningRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+screeningColumns+" FROM screenings ORDER BY screening_date, screening_time")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []remote.ScreeningRecord
	for rows.Next() {
		var (
			s                  remote.ScreeningRecord
			reserved, rowTypes string
		)
		if err := rows.Scan(&s.ID, &s.MovieID, &s.MovieTitle, &s.Date, &s.Time, &s.Hall, &s.Price,
			&s.TotalRows, &s.SeatsPerRow, &reserved, &rowTypes); err != nil {
			return nil, err
		}
		if err := decodeJSONColumn(reserved, &s.ReservedSeats); err != nil {
			return nil, fmt.Errorf("screening %s reserved_seats: %w", s.ID, err)
		}
		if err := decodeJSONColumn(rowTypes, &s.RowTypes); err != nil {
			return nil, fmt.Errorf("screening %s row_types: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeJSONColumn(raw string, dst any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
