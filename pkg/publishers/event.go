package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

// Event types published downstream.
const (
	EventNoticeCreated = "notice.created"
	EventRunCompleted  = "run.completed"
)

// Event represents the payload published downstream.
type Event struct {
	Type        string            `json:"type"`
	BoardID     string            `json:"board_id"`
	BoardName   string            `json:"board_name"`
	Notice      *domain.Notice    `json:"notice,omitempty"`
	Result      *domain.RunResult `json:"result,omitempty"`
	CollectedAt time.Time         `json:"collected_at"`
}

// NewNoticeEvent announces a notice that was stored for the first time.
func NewNoticeEvent(boardID, boardName string, n domain.Notice) Event {
	return Event{
		Type:        EventNoticeCreated,
		BoardID:     boardID,
		BoardName:   boardName,
		Notice:      &n,
		CollectedAt: time.Now().UTC(),
	}
}

// NewRunEvent carries the aggregate outcome of one run.
func NewRunEvent(boardID, boardName string, res domain.RunResult) Event {
	return Event{
		Type:        EventRunCompleted,
		BoardID:     boardID,
		BoardName:   boardName,
		Result:      &res,
		CollectedAt: time.Now().UTC(),
	}
}
