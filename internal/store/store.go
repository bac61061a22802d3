package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/roach88/entsync/internal/notify"
	"github.com/roach88/entsync/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on objects.seq
const currentSchemaVersion = 1

// Driver names accepted by WithDriver.
const (
	DriverCGo  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// Store is a SQLite-backed object store.
// Uses WAL mode and a single connection; commits are serialized.
type Store struct {
	db       *sql.DB
	driver   string
	now      func() time.Time
	ids      IDGenerator
	logger   *slog.Logger
	clock    *seqClock
	compiler *querysql.SQLCompiler
	bus      *notify.Bus[ChangeSet]

	commitMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithDriver selects the database/sql driver: DriverCGo (default) or
// DriverPure.
func WithDriver(name string) Option {
	return func(s *Store) {
		s.driver = name
	}
}

// WithClock sets the wall clock used to stamp createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the object id generator. Defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		s.ids = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Open is idempotent: opening an existing store resumes its seq clock.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		driver:   DriverCGo,
		now:      time.Now,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		compiler: querysql.NewSQLCompiler(),
		bus:      notify.NewBus[ChangeSet](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.driver != DriverCGo && s.driver != DriverPure {
		return nil, fmt.Errorf("unknown sqlite driver %q", s.driver)
	}

	db, err := sql.Open(s.driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	var last int64
	if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM commits").Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to resume seq clock: %w", err)
	}

	s.db = db
	s.clock = newSeqClockAt(last)
	s.logger.Debug("store opened", "path", path, "driver", s.driver, "seq", last)
	return s, nil
}

// Close closes the database and every subscription.
func (s *Store) Close() error {
	s.bus.Close()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// LastSeq returns the seq of the most recent commit, 0 for a new store.
func (s *Store) LastSeq() int64 {
	return s.clock.current()
}

// Begin starts a reconciliation context. The returned Tx buffers all
// changes in memory until Commit; it is not safe for concurrent use.
func (s *Store) Begin() *Tx {
	return newTx(s)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes objects by seq for change-ordered reads.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_objects_seq ON objects(seq)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
