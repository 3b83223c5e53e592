package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

// Package storage persists notices keyed on their link.

// Outcome is the result of a successful persistence attempt.
type Outcome int

const (
	// Inserted means the notice was new and is now stored.
	Inserted Outcome = iota + 1
	// Duplicate means a notice with the same link already existed; nothing was written.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Store writes notices at most once per link. Implementations are safe for concurrent use.
type Store interface {
	Persist(ctx context.Context, n domain.Notice) (Outcome, error)
	Close() error
}

// Options selects and configures a concrete backend.
type Options struct {
	Type        string
	Postgres    PostgresConfig
	Table       string
	AutoMigrate bool
	BBoltPath   string
}

// NewStore creates the configured storage backend.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	typ := strings.TrimSpace(strings.ToLower(opts.Type))

	switch typ {
	case "memory":
		return NewMemoryStore(), nil
	case "bbolt":
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case "postgres":
		db, err := NewPostgresConnection(ctx, opts.Postgres)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(db, opts.Table)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if opts.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}
