package app

import (
	"context"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
	"github.com/samvad-hq/samvad-notice-harvester/internal/logger"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/boards"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/publishers"
)

// fanoutNotifier turns crawler callbacks into published events. Publish failures
// are logged and never reach the crawler.
type fanoutNotifier struct {
	fanout *publishers.Fanout
	log    logger.Logger
}

func newFanoutNotifier(fanout *publishers.Fanout, log logger.Logger) *fanoutNotifier {
	return &fanoutNotifier{fanout: fanout, log: logger.Ensure(log)}
}

func (n *fanoutNotifier) NoticeInserted(ctx context.Context, board boards.Board, notice domain.Notice) {
	n.publish(ctx, publishers.NewNoticeEvent(board.ID, board.Name, notice))
}

func (n *fanoutNotifier) RunCompleted(ctx context.Context, board boards.Board, res domain.RunResult) {
	n.publish(ctx, publishers.NewRunEvent(board.ID, board.Name, res))
}

func (n *fanoutNotifier) publish(ctx context.Context, evt publishers.Event) {
	if n.fanout.Size() == 0 {
		return
	}
	delivered, err := n.fanout.Publish(ctx, evt)
	if err != nil {
		n.log.WarnObj("event publish failed", "publish_error", map[string]any{
			"event_type": evt.Type,
			"board_id":   evt.BoardID,
			"delivered":  delivered,
			"error":      err.Error(),
		})
		return
	}
	n.log.DebugObj("event published", "publish_meta", map[string]any{
		"event_type": evt.Type,
		"board_id":   evt.BoardID,
		"delivered":  delivered,
	})
}
