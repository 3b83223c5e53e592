// Package render turns a listing URL into a parsed, structurally queryable document.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Failure reasons carried by RenderError.
const (
	ReasonMarkerNotFound = "marker-not-found"
	ReasonTransport      = "transport"
	ReasonSession        = "session"
	ReasonParse          = "parse"
	ReasonCancelled      = "cancelled"
)

// ErrEvaluateUnsupported is returned by documents that were not produced by a script-capable engine.
var ErrEvaluateUnsupported = errors.New("render: script evaluation not supported by this renderer")

// RenderError reports that a page never reached a ready state.
type RenderError struct {
	URL    string
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("render %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Request names the page to render and the element that proves its content loaded.
type Request struct {
	URL     string
	Marker  string
	Headers map[string]string
}

// Options are shared by all renderer implementations.
type Options struct {
	Timeout  time.Duration
	Insecure bool
	Headless bool
}

// Browser hands out renderer sessions. A session is used by one run at a time.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session renders pages until it is closed.
type Session interface {
	Render(ctx context.Context, req Request) (*Document, error)
	Close() error
}

// Evaluator runs a script against the loaded page and decodes its result into out.
type Evaluator func(ctx context.Context, expr string, out any) error

// Document is a rendered page.
type Document struct {
	doc  *goquery.Document
	eval Evaluator
}

// NewDocument wraps a parsed page. eval may be nil.
func NewDocument(doc *goquery.Document, eval Evaluator) *Document {
	return &Document{doc: doc, eval: eval}
}

// ParseDocument parses raw markup fetched from pageURL.
func ParseDocument(markup, pageURL string, eval Evaluator) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if u, err := url.Parse(pageURL); err == nil {
		doc.Url = u
	}
	return NewDocument(doc, eval), nil
}

// Rows returns every node matching selector in document order.
func (d *Document) Rows(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Has reports whether at least one node matches selector.
func (d *Document) Has(selector string) bool {
	return d.doc.Find(selector).Length() > 0
}

// BaseURL is the URL relative links resolve against: <base href> when present, else the page URL.
func (d *Document) BaseURL() *url.URL {
	base := d.doc.Url
	if href, ok := d.doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if base == nil {
				return ref
			}
			return base.ResolveReference(ref)
		}
	}
	return base
}

// Evaluate runs expr in the page.
func (d *Document) Evaluate(ctx context.Context, expr string, out any) error {
	if d.eval == nil {
		return ErrEvaluateUnsupported
	}
	return d.eval(ctx, expr, out)
}

// classify maps a failed step onto a RenderError. When the caller's context is
// done, by cancellation or by its own deadline, the reason is cancelled.
func classify(ctx context.Context, rawURL, reason string, err error) *RenderError {
	if ctx.Err() != nil {
		return &RenderError{URL: rawURL, Reason: ReasonCancelled, Err: err}
	}
	return &RenderError{URL: rawURL, Reason: reason, Err: err}
}
