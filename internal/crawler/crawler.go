package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
	"github.com/samvad-hq/samvad-notice-harvester/internal/logger"
	"github.com/samvad-hq/samvad-notice-harvester/internal/render"
	"github.com/samvad-hq/samvad-notice-harvester/internal/storage"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/boards"
)

const (
	defaultPersistWorkers = 4
	defaultPersistTimeout = 5 * time.Second
)

// Options tunes the persistence stage.
type Options struct {
	PersistWorkers int
	PersistTimeout time.Duration
}

// Service runs the render, extract, dedupe and persist pipeline for one board at a time.
type Service struct {
	browser  render.Browser
	store    Persister
	notifier Notifier
	log      logger.Logger
	opts     Options
	now      func() time.Time

	runMu sync.Mutex
	state atomic.Int32
}

// NewService wires a crawler with its renderer and store. notifier and log may be nil.
func NewService(browser render.Browser, store Persister, notifier Notifier, log logger.Logger, opts Options) *Service {
	if opts.PersistWorkers <= 0 {
		opts.PersistWorkers = defaultPersistWorkers
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	return &Service{
		browser:  browser,
		store:    store,
		notifier: notifier,
		log:      logger.Ensure(log),
		opts:     opts,
		now:      time.Now,
	}
}

// State reports where the current run is.
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(board string, st State) {
	prev := State(s.state.Swap(int32(st)))
	s.log.DebugObj("crawler state transition", "crawler_state", map[string]any{
		"board_id": board,
		"from":     prev.String(),
		"to":       st.String(),
	})
}

// RunAll crawls boards one after another. A failed board does not stop the others.
func (s *Service) RunAll(ctx context.Context, list []boards.Board) ([]domain.RunResult, error) {
	if s == nil || s.browser == nil || s.store == nil {
		return nil, fmt.Errorf("crawler service is not initialized")
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no boards configured for crawling")
	}

	results := make([]domain.RunResult, 0, len(list))
	var errs []error
	for _, b := range list {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := s.Run(ctx, b)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("board %s: %w", b.ID, err))
		}
	}
	return results, errors.Join(errs...)
}

// Run performs one pass over a board. It always returns a RunResult; the error is
// non-nil when rendering failed (all counts zero) or the context was cancelled.
func (s *Service) Run(ctx context.Context, board boards.Board) (domain.RunResult, error) {
	if s == nil || s.browser == nil || s.store == nil {
		return domain.RunResult{}, fmt.Errorf("crawler service is not initialized")
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()

	board = boards.Sanitize(board)
	start := s.now()
	result := domain.RunResult{BoardID: board.ID, URL: board.URL, StartedAt: start.UTC()}
	defer s.setState(board.ID, StateIdle)

	s.setState(board.ID, StateRendering)
	doc, release, err := s.render(ctx, board)
	release()
	if err != nil {
		s.setState(board.ID, StateFailed)
		result.Elapsed = time.Since(start)
		s.log.ErrorObj("board render failed", "render_error", map[string]any{
			"board_id": board.ID,
			"url":      board.URL,
			"error":    err.Error(),
		})
		return result, err
	}

	s.setState(board.ID, StateExtracting)
	records, stats := NewExtractor(SelectorsFor(board), board.ID).Extract(doc)

	s.setState(board.ID, StatePersisting)
	counts, runErr := s.persistAll(ctx, board, Dedupe(records))

	s.setState(board.ID, StateReporting)
	result.Discovered = stats.Yielded
	result.Unique = counts.unique
	result.PersistedNew = counts.inserted
	result.Duplicates = counts.duplicates
	result.Failed = counts.failed
	result.Elapsed = time.Since(start)

	if stats.Rows == 0 {
		s.log.WarnObj("no rows matched; board structure may have changed", "extract_gap", map[string]any{
			"board_id":     board.ID,
			"url":          board.URL,
			"row_selector": board.RowSelector,
		})
	}
	s.report(ctx, board, result, stats)

	return result, runErr
}

// render acquires a session and renders the board. The document is detached from the
// session, so callers release it right away. release is always safe to call.
func (s *Service) render(ctx context.Context, board boards.Board) (*render.Document, func(), error) {
	noop := func() {}

	session, err := s.browser.Open(ctx)
	if err != nil {
		var rerr *render.RenderError
		if !errors.As(err, &rerr) {
			err = &render.RenderError{URL: board.URL, Reason: render.ReasonSession, Err: err}
		}
		return nil, noop, err
	}
	release := func() {
		if cerr := session.Close(); cerr != nil {
			s.log.WarnObj("renderer session close failed", "render_close_error", map[string]any{
				"board_id": board.ID,
				"error":    cerr.Error(),
			})
		}
	}

	doc, err := session.Render(ctx, render.Request{
		URL:     board.URL,
		Marker:  board.MarkerSelector,
		Headers: boards.Headers(board),
	})
	if err != nil {
		return nil, release, err
	}
	return doc, release, nil
}

type persistCounts struct {
	unique     int
	inserted   int
	duplicates int
	failed     int
}

// persistAll attempts every notice independently on a bounded pool. After ctx is
// cancelled no new attempts start; in-flight attempts finish under their own timeout.
func (s *Service) persistAll(ctx context.Context, board boards.Board, records iter.Seq[domain.Notice]) (persistCounts, error) {
	var (
		g          errgroup.Group
		inserted   atomic.Int64
		duplicates atomic.Int64
		failed     atomic.Int64
		counts     persistCounts
		undispatch int
	)
	g.SetLimit(s.opts.PersistWorkers)
	detached := context.WithoutCancel(ctx)

	for n := range records {
		counts.unique++
		if ctx.Err() != nil {
			undispatch++
			continue
		}

		g.Go(func() error {
			pctx, cancel := context.WithTimeout(detached, s.opts.PersistTimeout)
			defer cancel()

			outcome, err := s.store.Persist(pctx, n)
			switch {
			case err != nil:
				failed.Add(1)
				s.log.ErrorObj("notice persist failed", "persist_error", map[string]any{
					"board_id": board.ID,
					"link":     n.Link,
					"error":    err.Error(),
				})
			case outcome == storage.Duplicate:
				duplicates.Add(1)
				s.log.DebugObj("notice already stored", "persist_duplicate", map[string]any{
					"board_id": board.ID,
					"link":     n.Link,
				})
			default:
				inserted.Add(1)
				if s.notifier != nil {
					nctx, ncancel := s.notifyContext(ctx)
					s.notifier.NoticeInserted(nctx, board, n)
					ncancel()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	counts.inserted = int(inserted.Load())
	counts.duplicates = int(duplicates.Load())
	counts.failed = int(failed.Load())

	if undispatch > 0 {
		s.log.WarnObj("run cancelled before all notices were persisted", "persist_cancelled", map[string]any{
			"board_id":      board.ID,
			"not_attempted": undispatch,
		})
		return counts, ctx.Err()
	}
	return counts, nil
}

func (s *Service) report(ctx context.Context, board boards.Board, res domain.RunResult, stats *ExtractStats) {
	meta := map[string]any{
		"board_id":      board.ID,
		"url":           board.URL,
		"rows":          stats.Rows,
		"discovered":    res.Discovered,
		"unique":        res.Unique,
		"persisted_new": res.PersistedNew,
		"duplicates":    res.Duplicates,
		"failed":        res.Failed,
		"elapsed_ms":    res.Elapsed.Milliseconds(),
	}
	if res.PersistedNew > 0 {
		s.log.InfoObj("new notices saved", "run_result", meta)
	} else {
		s.log.InfoObj("no new notices", "run_result", meta)
	}
	if s.notifier != nil {
		nctx, cancel := s.notifyContext(ctx)
		defer cancel()
		s.notifier.RunCompleted(nctx, board, res)
	}
}

// notifyContext bounds a notifier call by the persist timeout. It outlives
// cancellation of ctx so events for stored notices are still attempted.
func (s *Service) notifyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
}
