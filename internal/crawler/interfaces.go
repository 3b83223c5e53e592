package crawler

import (
	"context"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
	"github.com/samvad-hq/samvad-notice-harvester/internal/storage"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/boards"
)

// Persister writes one notice and reports whether it was new.
type Persister interface {
	Persist(ctx context.Context, n domain.Notice) (storage.Outcome, error)
}

// Notifier receives run events. Calls may arrive from several persistence workers at once.
type Notifier interface {
	NoticeInserted(ctx context.Context, board boards.Board, n domain.Notice)
	RunCompleted(ctx context.Context, board boards.Board, res domain.RunResult)
}
