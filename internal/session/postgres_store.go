// internal/session/postgres_store.go
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const (
	loadSessionSQL = `SELECT data FROM portal_sessions WHERE id = $1 AND expires_at > $2`

	upsertSessionSQL = `INSERT INTO portal_sessions (id, data, expires_at)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (id) DO UPDATE
SET data = portal_sessions.data || EXCLUDED.data, expires_at = EXCLUDED.expires_at`

	unsetSessionSQL = `UPDATE portal_sessions SET data = data - $2::text[], expires_at = $3 WHERE id = $1`

	deleteSessionSQL = `DELETE FROM portal_sessions WHERE id = $1`

	purgeSessionsSQL = `DELETE FROM portal_sessions WHERE expires_at <= $1`
)

// PostgresStore keeps each session as one jsonb document in portal_sessions.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (p *PostgresStore) Load(ctx context.Context, id string) (map[string]string, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, loadSessionSQL, id, p.now().UTC()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return values, nil
}

func (p *PostgresStore) Set(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	doc, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, upsertSessionSQL, id, string(doc), p.now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Unset(ctx context.Context, id string, keys []string, ttl time.Duration) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.db.ExecContext(ctx, unsetSessionSQL, id, pq.Array(keys), p.now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("clear session keys: %w", err)
	}
	return nil
}

func (p *PostgresStore) Destroy(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, deleteSessionSQL, id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, purgeSessionsSQL, p.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
