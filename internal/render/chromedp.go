package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromeBrowser renders pages in headless Chrome through the DevTools protocol.
type ChromeBrowser struct {
	opts Options
}

// NewChromeBrowser builds a chromedp-backed browser.
func NewChromeBrowser(opts Options) *ChromeBrowser {
	return &ChromeBrowser{opts: opts}
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if opts.Insecure {
		out = append(out, chromedp.IgnoreCertErrors)
	}
	return out
}

// Open launches a browser process with a single tab. Close releases both.
func (b *ChromeBrowser) Open(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(b.opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, &RenderError{Reason: ReasonSession, Err: fmt.Errorf("start chrome: %w", err)}
	}

	return &chromeSession{
		tabCtx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		opts: b.opts,
	}, nil
}

type chromeSession struct {
	tabCtx context.Context
	cancel context.CancelFunc
	opts   Options
}

func (s *chromeSession) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *chromeSession) Render(ctx context.Context, req Request) (*Document, error) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.tabCtx, s.opts.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var actions []chromedp.Action
	if len(req.Headers) > 0 {
		actions = append(actions, chromedp.ActionFunc(func(c context.Context) error {
			return setExtraHeaders(c, req.Headers)
		}))
	}
	actions = append(actions, chromedp.Navigate(req.URL))
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, classify(ctx, req.URL, ReasonTransport, err)
	}

	if req.Marker != "" {
		if err := chromedp.Run(runCtx, chromedp.WaitReady(req.Marker, chromedp.ByQuery)); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, classify(ctx, req.URL, ReasonMarkerNotFound, err)
			}
			return nil, classify(ctx, req.URL, ReasonTransport, err)
		}
	}

	var (
		markup   string
		location string
	)
	if err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	); err != nil {
		return nil, classify(ctx, req.URL, ReasonTransport, err)
	}

	doc, err := ParseDocument(markup, location, s.evaluate)
	if err != nil {
		return nil, &RenderError{URL: req.URL, Reason: ReasonParse, Err: err}
	}
	return doc, nil
}

func (s *chromeSession) evaluate(ctx context.Context, expr string, out any) error {
	evalCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(evalCtx, chromedp.Evaluate(expr, out))
}
