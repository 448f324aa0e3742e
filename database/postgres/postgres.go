package postgres

import (
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS redaction_audit_records (
	id                  VARCHAR(26) PRIMARY KEY,
	file                TEXT NOT NULL,
	privacy_mode        VARCHAR(16) NOT NULL,
	redaction_style     VARCHAR(16) NOT NULL,
	signatures_detected INTEGER NOT NULL DEFAULT 0,
	entities_redacted   TEXT NOT NULL DEFAULT '{}',
	highlight_only      BOOLEAN NOT NULL DEFAULT FALSE,
	error               TEXT,
	created_at          TIMESTAMPTZ NOT NULL
)`

// FormatDSN builds a lib/pq connection string from DB_* variables.
func FormatDSN() string {
	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		sslMode,
	)
}

// New connects to Postgres and makes sure the audit table exists.
func New() (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate audit table: %w", err)
	}

	return db, nil
}
