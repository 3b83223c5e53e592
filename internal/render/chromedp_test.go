package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"testing"
	"time"
)

func TestAllocatorOptionsGrowWithInsecure(t *testing.T) {
	secure := allocatorOptions(Options{Headless: true})
	insecure := allocatorOptions(Options{Headless: true, Insecure: true})
	if len(insecure) != len(secure)+1 {
		t.Fatalf("expected insecure to add one allocator option, got %d vs %d", len(insecure), len(secure))
	}
}

// requireChrome skips unless a Chrome binary chromedp can launch is installed.
func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("chrome not installed")
}

const scriptedBoard = `<html><body><table id="list"></table>
<script>
setTimeout(function () {
  document.getElementById('list').innerHTML =
    '<tr><td class="bo_tit"><a href="/bbs/board.php?wr_id=7">Scripted notice</a></td><td class="td_date">2024-03-07</td></tr>';
}, 100);
</script>
</body></html>`

func chromeRender(ctx context.Context, t *testing.T, opts Options, req Request) (*Document, error) {
	t.Helper()
	session, err := NewChromeBrowser(opts).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session.Render(ctx, req)
}

func TestChromeRenderWaitsForScriptedMarker(t *testing.T) {
	requireChrome(t)
	var (
		mu       sync.Mutex
		language string
	)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		language = r.Header.Get("Accept-Language")
		mu.Unlock()
		_, _ = w.Write([]byte(scriptedBoard))
	}))
	defer srv.Close()

	doc, err := chromeRender(context.Background(), t,
		Options{Timeout: 10 * time.Second, Insecure: true, Headless: true},
		Request{URL: srv.URL, Marker: ".bo_tit", Headers: map[string]string{"Accept-Language": "ko-KR"}},
	)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := doc.Rows("tr").Length(); got != 1 {
		t.Fatalf("expected scripted row, got %d", got)
	}
	if doc.BaseURL() == nil || doc.BaseURL().Host != srv.Listener.Addr().String() {
		t.Fatalf("unexpected base url %v", doc.BaseURL())
	}

	var rows int
	if err := doc.Evaluate(context.Background(), `document.querySelectorAll('tr').length`, &rows); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected evaluate to see 1 row, got %d", rows)
	}

	mu.Lock()
	defer mu.Unlock()
	if language != "ko-KR" {
		t.Fatalf("expected extra header to reach the server, got %q", language)
	}
}

func TestChromeRenderMarkerNotFound(t *testing.T) {
	requireChrome(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>maintenance</p></body></html>`))
	}))
	defer srv.Close()

	_, err := chromeRender(context.Background(), t,
		Options{Timeout: time.Second, Insecure: true, Headless: true},
		Request{URL: srv.URL, Marker: ".bo_tit"},
	)
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Reason != ReasonMarkerNotFound {
		t.Fatalf("expected marker-not-found, got %v", err)
	}
}

func TestChromeRenderRejectsSelfSignedWhenSecure(t *testing.T) {
	requireChrome(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(scriptedBoard))
	}))
	defer srv.Close()

	_, err := chromeRender(context.Background(), t,
		Options{Timeout: 5 * time.Second, Headless: true},
		Request{URL: srv.URL, Marker: ".bo_tit"},
	)
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Reason != ReasonTransport {
		t.Fatalf("expected transport RenderError, got %v", err)
	}
}

func TestChromeRenderCallerDeadlineIsCancelled(t *testing.T) {
	requireChrome(t)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>never ready</p></body></html>`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := chromeRender(ctx, t,
		Options{Timeout: 10 * time.Second, Insecure: true, Headless: true},
		Request{URL: srv.URL, Marker: ".bo_tit"},
	)
	var rerr *RenderError
	if !errors.As(err, &rerr) || rerr.Reason != ReasonCancelled {
		t.Fatalf("expected cancelled RenderError, got %v", err)
	}
}
