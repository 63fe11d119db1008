// Package session persists the operator's working context between CLI
// invocations: which storage endpoint to talk to, the bearer token if
// one is needed, and the active project. It also keeps a log of frame
// sync outcomes for the status command.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"stopmo/internal/models"
	"stopmo/internal/shared"
)

// Keys understood by the session table.
const (
	KeyStorageMode = "storage_mode"
	KeyEndpoint    = "endpoint"
	KeyBucket      = "bucket"
	KeyAccessToken = "access_token"
	KeyProjectID   = "project_id"
)

var validKeys = map[string]bool{
	KeyStorageMode: true,
	KeyEndpoint:    true,
	KeyBucket:      true,
	KeyAccessToken: true,
	KeyProjectID:   true,
}

// Credentials is the materialized session state.
type Credentials struct {
	StorageMode string `json:"storage_mode"`
	Endpoint    string `json:"endpoint"`
	Bucket      string `json:"bucket"`
	AccessToken string `json:"access_token,omitempty"`
	ProjectID   string `json:"project_id"`
}

// Redacted returns a copy safe for printing, with the token masked.
func (c Credentials) Redacted() Credentials {
	if c.AccessToken != "" {
		c.AccessToken = "********"
	}
	return c
}

// SyncEntry is one recorded frame sync outcome.
type SyncEntry struct {
	ID         int64     `json:"id"`
	ProjectID  string    `json:"project_id"`
	FrameIndex int       `json:"frame_index"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	SyncedAt   time.Time `json:"synced_at"`
}

// Store reads and writes session state through a sqlite handle opened
// by [shared.NewDatabase].
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

func NewStore(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{db: db, logger: logger}
}

// Set upserts a single session key.
func (s *Store) Set(key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown session key %q: %w", key, shared.ErrInvalidInput)
	}

	query := `INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("storing session key %s: %w", key, err)
	}
	return nil
}

// Get reads a single session key, returning "" when unset.
func (s *Store) Get(key string) (string, error) {
	if !validKeys[key] {
		return "", fmt.Errorf("unknown session key %q: %w", key, shared.ErrInvalidInput)
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session key %s: %w", key, err)
	}
	return value, nil
}

// Clear removes a single session key. Clearing an absent key is fine.
func (s *Store) Clear(key string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown session key %q: %w", key, shared.ErrInvalidInput)
	}
	if _, err := s.db.Exec(`DELETE FROM session WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clearing session key %s: %w", key, err)
	}
	return nil
}

// ClearAll wipes the whole session.
func (s *Store) ClearAll() error {
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Load materializes every stored key into a Credentials value.
func (s *Store) Load() (Credentials, error) {
	rows, err := s.db.Query(`SELECT key, value FROM session`)
	if err != nil {
		return Credentials{}, fmt.Errorf("loading session: %w", err)
	}
	defer rows.Close()

	var creds Credentials
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credentials{}, fmt.Errorf("scanning session row: %w", err)
		}
		switch key {
		case KeyStorageMode:
			creds.StorageMode = value
		case KeyEndpoint:
			creds.Endpoint = value
		case KeyBucket:
			creds.Bucket = value
		case KeyAccessToken:
			creds.AccessToken = value
		case KeyProjectID:
			creds.ProjectID = value
		}
	}
	if err := rows.Err(); err != nil {
		return Credentials{}, fmt.Errorf("iterating session rows: %w", err)
	}
	return creds, nil
}

// Import applies credentials extracted elsewhere (e.g. from a captured
// curl command), overwriting only the fields that are present.
func (s *Store) Import(creds Credentials) error {
	pairs := []struct {
		key   string
		value string
	}{
		{KeyStorageMode, creds.StorageMode},
		{KeyEndpoint, creds.Endpoint},
		{KeyBucket, creds.Bucket},
		{KeyAccessToken, creds.AccessToken},
		{KeyProjectID, creds.ProjectID},
	}

	for _, pair := range pairs {
		if pair.value == "" {
			continue
		}
		if err := s.Set(pair.key, pair.value); err != nil {
			return err
		}
	}
	return nil
}

// RecordSync appends one frame sync outcome to the log.
func (s *Store) RecordSync(projectID string, result models.SyncResult) error {
	query := `INSERT INTO sync_log (project_id, frame_index, success, error) VALUES (?, ?, ?, ?)`
	if _, err := s.db.Exec(query, projectID, result.Index, result.Success, result.Error); err != nil {
		return fmt.Errorf("recording sync result: %w", err)
	}
	return nil
}

// RecordSyncBatch logs a full SyncFrames result set. Individual insert
// failures are logged and do not stop the batch.
func (s *Store) RecordSyncBatch(projectID string, results []models.SyncResult) {
	for _, result := range results {
		if err := s.RecordSync(projectID, result); err != nil {
			s.logger.Warn("sync log write failed", "project", projectID, "frame", result.Index, "error", err)
		}
	}
}

// ClearSyncLog removes sync log entries, for one project or all of
// them when projectID is empty. Returns the number of rows removed.
func (s *Store) ClearSyncLog(projectID string) (int64, error) {
	var result sql.Result
	var err error
	if projectID == "" {
		result, err = s.db.Exec(`DELETE FROM sync_log`)
	} else {
		result, err = s.db.Exec(`DELETE FROM sync_log WHERE project_id = ?`, projectID)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing sync log: %w", err)
	}
	removed, _ := result.RowsAffected()
	return removed, nil
}

// RecentSyncs returns the newest sync log entries for a project,
// newest first.
func (s *Store) RecentSyncs(projectID string, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, project_id, frame_index, success, error, synced_at
		FROM sync_log WHERE project_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.Query(query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading sync log: %w", err)
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var entry SyncEntry
		var errText sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.FrameIndex,
			&entry.Success, &errText, &entry.SyncedAt); err != nil {
			return nil, fmt.Errorf("scanning sync log row: %w", err)
		}
		entry.Error = errText.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
