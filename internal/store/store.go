package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const currentVersion = 1

var (
	// ErrNotFound is returned when a record is missing from storage.
	ErrNotFound = errors.New("store: record not found")
	// ErrRunningExists is returned when inserting a second running session.
	ErrRunningExists = errors.New("store: a session is already running")
	// ErrPauseOpen is returned when opening a second pause for a session.
	ErrPauseOpen = errors.New("store: session already has an open pause")
	// ErrDuplicateName is returned when a project name is already taken.
	ErrDuplicateName = errors.New("store: duplicate project name")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	conn *sql.DB
	db   querier
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{conn: db, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// WithTx runs fn inside a single transaction. The *Store handed to fn is bound
// to the transaction; fn must not use the outer store, which would block on
// the single connection. Calls on an already transactional store reuse it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if _, ok := s.db.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{conn: s.conn, db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	var version int
	err := s.conn.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS projects (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL UNIQUE,
		number      TEXT NOT NULL DEFAULT '',
		archived    INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_archived ON projects(archived);

	CREATE TABLE IF NOT EXISTS work_sessions (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id       INTEGER NOT NULL REFERENCES projects(id),
		start_ms         INTEGER NOT NULL,
		end_ms           INTEGER,
		started_manually INTEGER NOT NULL DEFAULT 0,
		note             TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_project ON work_sessions(project_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_start   ON work_sessions(start_ms);
	CREATE INDEX IF NOT EXISTS idx_sessions_end     ON work_sessions(end_ms);

	-- At most one running session, enforced across processes.
	CREATE UNIQUE INDEX IF NOT EXISTS ux_sessions_running
		ON work_sessions((end_ms IS NULL)) WHERE end_ms IS NULL;

	CREATE TABLE IF NOT EXISTS pause_segments (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  INTEGER NOT NULL REFERENCES work_sessions(id) ON DELETE CASCADE,
		start_ms    INTEGER NOT NULL,
		end_ms      INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pauses_session ON pause_segments(session_id);

	-- At most one open pause per session.
	CREATE UNIQUE INDEX IF NOT EXISTS ux_pauses_open
		ON pause_segments(session_id) WHERE end_ms IS NULL;

	CREATE TABLE IF NOT EXISTS session_edits (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id    INTEGER NOT NULL REFERENCES work_sessions(id) ON DELETE CASCADE,
		field         TEXT NOT NULL,
		old_value     TEXT,
		new_value     TEXT,
		reason        TEXT NOT NULL DEFAULT '',
		edited_at_ms  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edits_session ON session_edits(session_id);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('week_start_monday', 'true'),
		('holiday_state',     'BY'),
		('rounding_minutes',  '0'),
		('rounding_mode',     'NONE'),
		('presence_enabled',  'false'),
		('presence_network',  ''),
		('trigger_check_min', '15'),
		('late_after_min',    '10'),
		('week_target_hours', '40'),
		('std_start_mon',     '09:00'),
		('std_start_tue',     '09:00'),
		('std_start_wed',     '09:00'),
		('std_start_thu',     '09:00'),
		('std_start_fri',     '09:00'),
		('std_start_sat',     '09:00'),
		('std_start_sun',     '09:00');
	`
	_, err := s.conn.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/worktime/worktime.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "worktime", "worktime.db"), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func affectedOrNotFound(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
