// Package archive persists snapshots of deleted and stale teams to a
// local SQLite database and guards against double-archiving a team
// whose deletion is observed through two paths.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/crewsync/crewsync/internal/team"
)

// ErrNotFound is returned when an archive entry does not exist.
var ErrNotFound = errors.New("archive: entry not found")

// Record is the payload written for one archived team session.
type Record struct {
	TeamName string
	Config   team.Config
	Tasks    []team.Task
	Inboxes  map[string][]team.Message
}

// Entry is one row of the externally-visible archive list.
type Entry struct {
	ID         string
	TeamName   string
	ArchivedAt time.Time
	Members    int
	Tasks      int
	Messages   int
}

// Service is the SQLite-backed archive store.
type Service struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the service's time source. Used in tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService opens (creating if needed) the archive database at path.
func NewService(path string, opts ...ServiceOption) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	// WAL keeps archive writes from blocking the list reads the CLI does.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: enable WAL mode: %w", err)
	}

	s := &Service{db: db, path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the archive table if it does not exist.
func (s *Service) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		team_name TEXT NOT NULL,
		archived_at TIMESTAMP NOT NULL,
		config JSON NOT NULL,
		tasks JSON NOT NULL,
		inboxes JSON NOT NULL,
		member_count INTEGER NOT NULL,
		task_count INTEGER NOT NULL,
		message_count INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_team ON sessions(team_name);
	CREATE INDEX IF NOT EXISTS idx_sessions_archived_at ON sessions(archived_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ArchiveSession writes one archive record and returns its ID.
func (s *Service) ArchiveSession(ctx context.Context, rec Record) (string, error) {
	configJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return "", fmt.Errorf("archive: marshal config: %w", err)
	}
	tasksJSON, err := json.Marshal(rec.Tasks)
	if err != nil {
		return "", fmt.Errorf("archive: marshal tasks: %w", err)
	}
	inboxesJSON, err := json.Marshal(rec.Inboxes)
	if err != nil {
		return "", fmt.Errorf("archive: marshal inboxes: %w", err)
	}

	messageCount := 0
	for _, msgs := range rec.Inboxes {
		messageCount += len(msgs)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, team_name, archived_at, config, tasks, inboxes,
			member_count, task_count, message_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.TeamName, s.now().UTC().Format(time.RFC3339Nano),
		string(configJSON), string(tasksJSON), string(inboxesJSON),
		len(rec.Config.Members), len(rec.Tasks), messageCount,
	)
	if err != nil {
		return "", fmt.Errorf("archive: insert session: %w", err)
	}
	return id, nil
}

// ListArchives returns all archive entries, newest first.
func (s *Service) ListArchives(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_name, archived_at, member_count, task_count, message_count
		FROM sessions ORDER BY archived_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("archive: query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var archivedAt string
		if err := rows.Scan(&e.ID, &e.TeamName, &archivedAt, &e.Members, &e.Tasks, &e.Messages); err != nil {
			return nil, fmt.Errorf("archive: scan session: %w", err)
		}
		e.ArchivedAt, err = time.Parse(time.RFC3339Nano, archivedAt)
		if err != nil {
			return nil, fmt.Errorf("archive: parse archived_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate sessions: %w", err)
	}
	return entries, nil
}

// LoadRecord returns the full archived payload for one entry.
func (s *Service) LoadRecord(ctx context.Context, id string) (Record, error) {
	var rec Record
	var configJSON, tasksJSON, inboxesJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT team_name, config, tasks, inboxes FROM sessions WHERE id = ?`, id).
		Scan(&rec.TeamName, &configJSON, &tasksJSON, &inboxesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("archive: load session: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), &rec.Config); err != nil {
		return Record{}, fmt.Errorf("archive: unmarshal config: %w", err)
	}
	if err := json.Unmarshal([]byte(tasksJSON), &rec.Tasks); err != nil {
		return Record{}, fmt.Errorf("archive: unmarshal tasks: %w", err)
	}
	if err := json.Unmarshal([]byte(inboxesJSON), &rec.Inboxes); err != nil {
		return Record{}, fmt.Errorf("archive: unmarshal inboxes: %w", err)
	}
	return rec, nil
}

// DeleteArchive removes one archive entry.
func (s *Service) DeleteArchive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}
