package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/remote"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,first_name,last_name,phone,credential,role"

// CreateUserIfAbsent inserts only when neither the id nor the email exists.
func (r *UserRepo) CreateUserIfAbsent(ctx context.Context, u remote.UserRecord) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?)",
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.Credential, u.Role)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FindUserByEmail returns nil, nil when no row matches.
func (r *UserRepo) FindUserByEmail(ctx context.Context, email string) (*remote.UserRecord, error) {
	var u remote.UserRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Credential, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) DeleteUserByEmail(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE email=?", email)
	return err
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]remote.UserRecord, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []remote.UserRecord
	for rows.Next() {
		var u remote.UserRecord
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Credential, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
