package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations
	DefaultPingTimeout = 5 * time.Second
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewPostgresConnection opens a pooled PostgreSQL connection and verifies it.
func NewPostgresConnection(ctx context.Context, cfg PostgresConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// PostgresStore writes notices into a table with a unique constraint on link.
type PostgresStore struct {
	db      *sqlx.DB
	table   string
	builder sq.StatementBuilderType
}

// NewPostgresStore wraps an open connection pool. The pool is closed by Close.
func NewPostgresStore(db *sqlx.DB, table string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres store requires a database handle")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid notices table name %q", table)
	}
	return &PostgresStore{
		db:      db,
		table:   table,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// EnsureSchema creates the notices table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         SERIAL PRIMARY KEY,
			title      TEXT NOT NULL,
			post_date  TEXT,
			link       TEXT NOT NULL UNIQUE,
			source     TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create notices table: %w", err)
	}
	return nil
}

// Persist inserts n unless its link is already stored.
func (s *PostgresStore) Persist(ctx context.Context, n domain.Notice) (Outcome, error) {
	query, args, err := s.builder.
		Insert(s.table).
		Columns("title", "post_date", "link", "source").
		Values(n.Title, n.PostDate, n.Link, nullable(n.Source)).
		Suffix("ON CONFLICT (link) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, &PersistError{Link: n.Link, Err: fmt.Errorf("build insert: %w", err)}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &PersistError{Link: n.Link, Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, &PersistError{Link: n.Link, Err: fmt.Errorf("rows affected: %w", err)}
	}
	if affected == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
