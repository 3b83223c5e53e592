package crawler

import (
	"slices"
	"testing"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
	"github.com/samvad-hq/samvad-notice-harvester/internal/render"
	"github.com/samvad-hq/samvad-notice-harvester/pkg/boards"
)

const listingURL = "https://cse.example.com/bbs/board.php?bo_table=sub5_1&lang=kor"

func mustDoc(t *testing.T, markup string) *render.Document {
	t.Helper()
	doc, err := render.ParseDocument(markup, listingURL, nil)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return doc
}

func defaultExtractor() *Extractor {
	return NewExtractor(SelectorsFor(boards.Board{ID: "cse", URL: listingURL}), "cse")
}

func TestExtractReadsRowsInDocumentOrder(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><th>title</th><th>date</th></tr>
<tr><td class="bo_tit"><a href="board.php?wr_id=2">  Second  </a></td><td class="td_date"> 2024-03-02 </td></tr>
<tr><td class="bo_tit"><a href="https://other.example.com/n/1">First</a></td><td class="td_datetime">2024-03-01 10:00</td></tr>
</table>`)

	seq, stats := defaultExtractor().Extract(doc)
	got := slices.Collect(seq)

	want := []domain.Notice{
		{Title: "Second", Link: "https://cse.example.com/bbs/board.php?wr_id=2", PostDate: "2024-03-02", Source: "cse"},
		{Title: "First", Link: "https://other.example.com/n/1", PostDate: "2024-03-01 10:00", Source: "cse"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected notices\n got %#v\nwant %#v", got, want)
	}
	if stats.Rows != 3 || stats.Yielded != 2 || stats.Skipped != 1 {
		t.Fatalf("unexpected stats %+v", *stats)
	}
}

func TestExtractPrefersFirstDateSelector(t *testing.T) {
	doc := mustDoc(t, `<table><tr>
<td class="bo_tit"><a href="/n/1">Notice</a></td>
<td class="td_datetime">2024-03-01 09:00</td>
<td class="td_date">2024-03-01</td>
</tr></table>`)

	seq, _ := defaultExtractor().Extract(doc)
	got := slices.Collect(seq)
	if len(got) != 1 || got[0].PostDate != "2024-03-01" {
		t.Fatalf("expected .td_date to win, got %#v", got)
	}
}

func TestExtractSkipsIncompleteRows(t *testing.T) {
	doc := mustDoc(t, `<table>
<tr><td class="bo_tit"><a href="/n/1">No date here</a></td></tr>
<tr><td class="bo_tit"><a href="/n/2">   </a></td><td class="td_date">2024-03-02</td></tr>
<tr><td class="bo_tit"><a href="javascript:void(0)">Script link</a></td><td class="td_date">2024-03-03</td></tr>
<tr><td class="bo_tit"><a>No href</a></td><td class="td_date">2024-03-04</td></tr>
<tr><td class="td_date">2024-03-05</td></tr>
<tr><td class="bo_tit"><a href="/n/6">Kept</a></td><td class="td_date">2024-03-06</td></tr>
</table>`)

	seq, stats := defaultExtractor().Extract(doc)
	got := slices.Collect(seq)
	if len(got) != 1 || got[0].Title != "Kept" || got[0].Link != "https://cse.example.com/n/6" {
		t.Fatalf("expected only the complete row, got %#v", got)
	}
	if stats.Skipped != 5 {
		t.Fatalf("expected 5 skipped rows, got %d", stats.Skipped)
	}
}

func TestExtractTitleWithoutAnchorUsesNestedHref(t *testing.T) {
	ex := NewExtractor(Selectors{Row: "li", Title: []string{".subject"}, Date: []string{".when"}}, "ee")
	doc := mustDoc(t, `<ul><li><div class="subject"><a href="/ee/7">Lab opening</a></div><span class="when">03.07</span></li></ul>`)

	seq, _ := ex.Extract(doc)
	got := slices.Collect(seq)
	if len(got) != 1 || got[0].Link != "https://cse.example.com/ee/7" || got[0].Source != "ee" {
		t.Fatalf("unexpected notices %#v", got)
	}
}

func TestExtractSequenceIsSingleUse(t *testing.T) {
	doc := mustDoc(t, `<table><tr><td class="bo_tit"><a href="/n/1">One</a></td><td class="td_date">d</td></tr></table>`)

	seq, _ := defaultExtractor().Extract(doc)
	if n := len(slices.Collect(seq)); n != 1 {
		t.Fatalf("first pass yielded %d", n)
	}
	if n := len(slices.Collect(seq)); n != 0 {
		t.Fatalf("second pass yielded %d, want 0", n)
	}
}

func TestExtractEmptyDocumentHasNoRows(t *testing.T) {
	seq, stats := defaultExtractor().Extract(mustDoc(t, `<p>maintenance</p>`))
	if n := len(slices.Collect(seq)); n != 0 || stats.Rows != 0 {
		t.Fatalf("expected no rows, got %d notices and %+v", n, *stats)
	}
}
