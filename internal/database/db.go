package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Schema holds the CREATE statements for the booking tables. Email and title
// are unique so save-if-absent can rely on INSERT IGNORE.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          VARCHAR(36)  NOT NULL PRIMARY KEY,
		email       VARCHAR(255) NOT NULL,
		first_name  VARCHAR(100) NOT NULL,
		last_name   VARCHAR(100) NOT NULL,
		phone       VARCHAR(32)  NOT NULL DEFAULT '',
		credential  VARCHAR(255) NOT NULL,
		role        VARCHAR(20)  NOT NULL,
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id               VARCHAR(36)  NOT NULL PRIMARY KEY,
		title            VARCHAR(255) NOT NULL,
		description      TEXT         NOT NULL,
		genre            VARCHAR(100) NOT NULL DEFAULT '',
		duration_minutes INT          NOT NULL,
		poster_ref       VARCHAR(512) NOT NULL DEFAULT '',
		rating           VARCHAR(16)  NOT NULL DEFAULT '',
		UNIQUE KEY uq_movies_title (title)
	)`,
	`CREATE TABLE IF NOT EXISTS screenings (
		id             VARCHAR(36)   NOT NULL PRIMARY KEY,
		movie_id       VARCHAR(36)   NOT NULL,
		movie_title    VARCHAR(255)  NOT NULL,
		screening_date CHAR(10)      NOT NULL,
		screening_time CHAR(5)       NOT NULL,
		hall           VARCHAR(64)   NOT NULL,
		price          DECIMAL(10,2) NOT NULL,
		total_rows     INT           NOT NULL,
		seats_per_row  INT           NOT NULL,
		reserved_seats TEXT          NOT NULL,
		row_types      TEXT          NOT NULL,
		KEY idx_screenings_movie (movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id                  VARCHAR(36)   NOT NULL PRIMARY KEY,
		screening_id        VARCHAR(36)   NOT NULL,
		movie_title         VARCHAR(255)  NOT NULL,
		screening_date      CHAR(10)      NOT NULL,
		screening_time      CHAR(5)       NOT NULL,
		hall                VARCHAR(64)   NOT NULL,
		customer_first_name VARCHAR(100)  NOT NULL,
		customer_last_name  VARCHAR(100)  NOT NULL,
		total_price         DECIMAL(10,2) NOT NULL,
		used                BOOLEAN       NOT NULL DEFAULT FALSE,
		purchased_at        DATETIME(3)   NOT NULL,
		seats               TEXT          NOT NULL,
		user_id             VARCHAR(36)   NULL,
		KEY idx_tickets_screening (screening_id)
	)`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
