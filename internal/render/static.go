package render

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/samvad-notice-harvester/pkg/httpclient"
)

const maxSnippetBytes = 512

// StaticBrowser renders server-side markup with a plain HTTP GET.
type StaticBrowser struct {
	client httpclient.Client
	opts   Options
}

// NewStaticBrowser builds a static renderer. A nil client gets a resty client honoring opts.
func NewStaticBrowser(client httpclient.Client, opts Options) *StaticBrowser {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{
			Timeout:  opts.Timeout,
			Insecure: opts.Insecure,
		})
	}
	return &StaticBrowser{client: client, opts: opts}
}

// Open returns a session sharing the browser's HTTP client.
func (b *StaticBrowser) Open(context.Context) (Session, error) {
	return &staticSession{client: b.client, opts: b.opts}, nil
}

type staticSession struct {
	client httpclient.Client
	opts   Options
}

func (s *staticSession) Close() error { return nil }

func (s *staticSession) Render(ctx context.Context, req Request) (*Document, error) {
	getCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		getCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	resp, err := s.client.Get(getCtx, req.URL, req.Headers)
	if err != nil {
		return nil, classify(ctx, req.URL, ReasonTransport, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &RenderError{
			URL:    req.URL,
			Reason: ReasonTransport,
			Err:    fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet(resp.Body())),
		}
	}

	doc, err := ParseDocument(string(resp.Body()), resp.FinalURL(), nil)
	if err != nil {
		return nil, &RenderError{URL: req.URL, Reason: ReasonParse, Err: err}
	}
	if req.Marker != "" && !doc.Has(req.Marker) {
		return nil, &RenderError{URL: req.URL, Reason: ReasonMarkerNotFound}
	}
	return doc, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetBytes {
		return s[:maxSnippetBytes] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
