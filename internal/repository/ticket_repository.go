package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/remote"
)

type TicketRepo struct{ DB *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{DB: db} }

const ticketColumns = "id,screening_id,movie_title,screening_date,screening_time,hall," +
	"customer_first_name,customer_last_name,total_price,used,purchased_at,seats,user_id"

func (r *TicketRepo) SaveTicket(ctx context.Context, t remote.TicketRecord) error {
	seats, err := json.Marshal(nonNil(t.Seats))
	if err != nil {
		return err
	}
	var userID sql.NullString
	if t.UserID != "" {
		userID = sql.NullString{String: t.UserID, Valid: true}
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO tickets ("+ticketColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE used=VALUES(used)",
		t.ID, t.ScreeningID, t.MovieTitle, t.ScreeningDate, t.ScreeningTime, t.Hall,
		t.CustomerFirstName, t.CustomerLastName, t.TotalPrice, t.Used, t.PurchaseTimestamp.UTC(),
		string(seats), userID)
	return err
}

func (r *TicketRepo) DeleteTicket(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM tickets WHERE id=?", id)
	return err
}

func (r *TicketRepo) ListTickets(ctx context.Context) ([]remote.TicketRecord, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+ticketColumns+" FROM tickets ORDER BY purchased_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []remote.TicketRecord
	for rows.Next() {
		var (
			t      remote.TicketRecord
			seats  string
			userID sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.ScreeningID, &t.MovieTitle, &t.ScreeningDate, &t.ScreeningTime, &t.Hall,
			&t.CustomerFirstName, &t.CustomerLastName, &t.TotalPrice, &t.Used, &t.PurchaseTimestamp,
			&seats, &userID); err != nil {
			return nil, err
		}
		if err := decodeJSONColumn(seats, &t.Seats); err != nil {
			return nil, fmt.Errorf("ticket %s seats: %w", t.ID, err)
		}
		t.UserID = userID.String
		out = append(out, t)
	}
	return out, rows.Err()
}
