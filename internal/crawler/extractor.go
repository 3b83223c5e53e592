package crawler

import (
	"iter"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
	"github.com/samvad-hq/samvad-notice-harvester/internal/render"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/boards"
)

// Selectors locate the row, title and date nodes of a listing page.
// Title and Date are ordered alternatives; the first one that matches inside a row wins.
type Selectors struct {
	Row   string
	Title []string
	Date  []string
}

// SelectorsFor returns the selectors configured for a board.
func SelectorsFor(b boards.Board) Selectors {
	b = boards.Sanitize(b)
	return Selectors{Row: b.RowSelector, Title: b.TitleSelectors, Date: b.DateSelectors}
}

// ExtractStats describes one extraction pass. Valid once the sequence has been fully consumed.
type ExtractStats struct {
	Rows    int
	Yielded int
	Skipped int
}

// Extractor turns listing rows into notices.
type Extractor struct {
	sel    Selectors
	source string
}

// NewExtractor builds an extractor tagging every notice with source.
func NewExtractor(sel Selectors, source string) *Extractor {
	return &Extractor{sel: sel, source: source}
}

// Extract walks the document's rows in order. The returned sequence is single-use:
// iterating it a second time yields nothing.
func (e *Extractor) Extract(doc *render.Document) (iter.Seq[domain.Notice], *ExtractStats) {
	stats := &ExtractStats{}
	var used atomic.Bool

	seq := func(yield func(domain.Notice) bool) {
		if doc == nil || !used.CompareAndSwap(false, true) {
			return
		}
		base := doc.BaseURL()
		rows := doc.Rows(e.sel.Row)
		for i := 0; i < rows.Length(); i++ {
			stats.Rows++
			n, ok := e.fromRow(rows.Eq(i), base)
			if !ok {
				stats.Skipped++
				continue
			}
			stats.Yielded++
			if !yield(n) {
				return
			}
		}
	}
	return seq, stats
}

func (e *Extractor) fromRow(row *goquery.Selection, base *url.URL) (domain.Notice, bool) {
	title := firstMatch(row, e.sel.Title)
	if title == nil {
		return domain.Notice{}, false
	}
	text := strings.TrimSpace(title.Text())
	if text == "" {
		return domain.Notice{}, false
	}

	date := firstMatch(row, e.sel.Date)
	if date == nil {
		return domain.Notice{}, false
	}

	link, ok := resolveLink(title, base)
	if !ok {
		return domain.Notice{}, false
	}

	return domain.Notice{
		Title:    text,
		Link:     link,
		PostDate: strings.TrimSpace(date.Text()),
		Source:   e.source,
	}, true
}

func firstMatch(row *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if node := row.Find(sel).First(); node.Length() > 0 {
			return node
		}
	}
	return nil
}

// resolveLink returns the absolute http(s) href of the title node or its first anchor.
func resolveLink(title *goquery.Selection, base *url.URL) (string, bool) {
	href, ok := title.Attr("href")
	if !ok {
		href, ok = title.Find("a[href]").First().Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" || ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}
