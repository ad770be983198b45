package unread

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/folio/internal/db"
)

// DBStore keeps values in SQLite, scoped to one visitor.
type DBStore struct {
	db      *db.DB
	visitor string
	now     func() time.Time
}

// NewDBStore creates a store for the given visitor id.
func NewDBStore(database *db.DB, visitor string) *DBStore {
	return &DBStore{db: database, visitor: visitor, now: time.Now}
}

// Get returns the visitor's value for key unless it has expired.
func (s *DBStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries
		WHERE namespace = ? AND key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		s.visitor, key, s.now().Unix(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the visitor's value for key.
func (s *DBStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expires any
	if ttl > 0 {
		expires = s.now().Add(ttl).Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (namespace, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = datetime('now')`,
		s.visitor, key, value, expires,
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Purge deletes every expired entry across all visitors.
func Purge(ctx context.Context, database *db.DB, now time.Time) (int64, error) {
	res, err := database.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging expired entries: %w", err)
	}
	return res.RowsAffected()
}

// VisitorID returns the visitor id carried by the named cookie, issuing a new
// one when the cookie is missing or not a UUID.
func VisitorID(w http.ResponseWriter, r *http.Request, name string, maxAge time.Duration) string {
	if c, err := r.Cookie(name); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
