package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// repository stores session keys in Postgres, one row per profile and key.
type repository struct {
	db      *sql.DB
	profile string
}

func NewRepository(db *sql.DB, profile string) *repository {
	if profile == "" {
		profile = "default"
	}
	return &repository{db: db, profile: profile}
}

func (r *repository) CreateTable(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS client_storage (
            profile    TEXT NOT NULL,
            key        TEXT NOT NULL,
            value      TEXT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (profile, key)
        )
    `
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating client_storage table: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, key string) (string, error) {
	var value string

	query := `
        SELECT value
        FROM client_storage
        WHERE profile = $1 AND key = $2
    `

	err := r.db.QueryRowContext(ctx, query, r.profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

func (r *repository) Set(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO client_storage (profile, key, value, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (profile, key)
        DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
    `

	_, err := r.db.ExecContext(ctx, query, r.profile, key, value, time.Now())
	return err
}

// Delete removes the given keys of this profile.
func (r *repository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := `DELETE FROM client_storage WHERE profile = $1 AND key = ANY($2)`
	_, err := r.db.ExecContext(ctx, query, r.profile, pq.Array(keys))
	return err
}
