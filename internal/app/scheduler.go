package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/samvad-hq/samvad-notice-harvester/internal/logger"
)

// Watch runs the boards immediately and then on the configured schedule until ctx is done.
// crawl_schedule takes precedence over crawl_interval. A tick that fires while the
// previous pass is still running is skipped.
func (h *Harvester) Watch(ctx context.Context) error {
	if h == nil || h.crawlService == nil {
		return fmt.Errorf("harvester is not initialized")
	}

	spec := scheduleSpec(h.cfg.CrawlSchedule, h.cfg.CrawlInterval)
	cl := cronLogger{log: h.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(spec, func() { h.pass(ctx, "scheduled") }); err != nil {
		return fmt.Errorf("invalid crawl schedule %q: %w", spec, err)
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"boards_count":     len(h.boards),
		"publishers_count": h.fanout.Size(),
		"schedule":         spec,
	})

	h.pass(ctx, "initial")
	c.Start()

	<-ctx.Done()
	h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
	<-c.Stop().Done()
	return nil
}

func (h *Harvester) pass(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	results, err := h.RunOnce(ctx)
	meta := map[string]any{
		"trigger":      trigger,
		"boards_count": len(results),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
		h.log.ErrorObj("crawl pass finished with errors", "crawl_meta", meta)
		return
	}
	h.log.InfoObj("crawl pass completed", "crawl_meta", meta)
}

func scheduleSpec(schedule string, interval time.Duration) string {
	if schedule != "" {
		return schedule
	}
	return "@every " + interval.String()
}

// cronLogger adapts the structured logger to cron's logging interface.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.DebugObj("cron: "+msg, "cron_meta", kvMap(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	meta := kvMap(keysAndValues)
	meta["error"] = err.Error()
	l.log.ErrorObj("cron: "+msg, "cron_meta", meta)
}

func kvMap(kv []interface{}) map[string]any {
	out := make(map[string]any, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
