// Package store owns the embedded relational persistence layer: opening
// the database file, configuring the connection pool, enforcing foreign
// keys, and applying migrations on boot. It owns the *sql.DB handle; the
// repository package is the only non-test package that issues SQL through
// it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" driver
	_ "github.com/ncruces/go-sqlite3/embed"  // statically links the sqlite3 engine
	"go.uber.org/zap"
)

// Config carries the subset of the process configuration the store needs to
// open and tune the database connection.
type Config struct {
	DatabasePath      string
	MigrationDir      string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
}

// Store wraps the process-wide *sql.DB handle. It is constructed once at
// boot, injected into the repository by construction, and closed once at
// shutdown; handlers never open their own connections.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if absent) the SQLite file at cfg.DatabasePath,
// configures the connection pool, enables foreign-key enforcement, and
// applies every *.sql file under cfg.MigrationDir in lexicographic order.
// Migration failures are fatal: Open returns an error and the caller must
// not proceed to serve traffic.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := connString(cfg.DatabasePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}

	if cfg.MigrationDir != "" {
		if err := s.migrate(ctx, os.DirFS(cfg.MigrationDir)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	logger.Info("store opened",
		zap.String("database_path", cfg.DatabasePath),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return s, nil
}

// connString builds a SQLite DSN with busy_timeout and foreign_keys pragmas
// set up front, so every connection in the pool enforces referential
// integrity without a separate per-connection PRAGMA round trip.
func connString(path string) string {
	path = strings.TrimSpace(path)
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
}

// migrate applies every *.sql file in dir, in lexicographic order, each as a
// single batch. It is safe to call against an already-migrated database:
// migrations are expected to be idempotent (CREATE TABLE/INDEX IF NOT
// EXISTS).
func (s *Store) migrate(ctx context.Context, dir fs.FS) error {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := fs.ReadFile(dir, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		s.logger.Info("applied migration", zap.String("file", name))
	}

	s.logger.Info("migrations complete", zap.Int("count", len(names)))
	return nil
}

// DB returns the underlying *sql.DB. Outside tests, which use it to seed
// rows, only the repository package calls this.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive, honoring ctx cancellation.
// Used by the health-check handler.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
