package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a preference has never been written.
var ErrNotFound = errors.New("preference not found")

// Preference is one stored key/value pair.
type Preference struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// GetPreference returns the value stored under key.
func (s *Store) GetPreference(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

// SetPreference stores value under key, replacing any previous value.
func (s *Store) SetPreference(key, value string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	log.Debug().Str("key", key).Str("value", value).Msg("Preference saved")
	return nil
}

// DeletePreference removes key. Deleting a missing key is not an error.
func (s *Store) DeletePreference(key string) error {
	if _, err := s.db.Exec(`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// ListPreferences returns every stored preference ordered by key.
func (s *Store) ListPreferences() ([]*Preference, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM preferences ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*Preference
	for rows.Next() {
		p := &Preference{}
		if err := rows.Scan(&p.Key, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
