package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wbs-cli/internal/engine"
	"wbs-cli/internal/outline"
	"wbs-cli/internal/store"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(store.SampleSnapshot(), engine.WithMetrics(engine.NewMetrics()))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	s, err := NewServer(ServerConfig{Engine: eng})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, eng
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

type editEnvelope struct {
	Data struct {
		Outcome engine.Outcome `json:"outcome"`
		Rows    []outline.Row  `json:"rows"`
	} `json:"data"`
}

func decodeEdit(t *testing.T, b []byte) editEnvelope {
	t.Helper()
	var env editEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return env
}

func TestServer_RowsAndHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	code, b := do(t, ts, http.MethodGet, "/health", "")
	if code != http.StatusOK || !strings.Contains(string(b), "healthy") {
		t.Fatalf("health: %d %s", code, b)
	}

	code, b = do(t, ts, http.MethodGet, "/rows", "")
	if code != http.StatusOK {
		t.Fatalf("rows: %d %s", code, b)
	}
	var env struct {
		Data []outline.Row `json:"data"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 12 || env.Data[0].Code != "1" || env.Data[2].Code != "1.1.1" {
		t.Fatalf("rows=%+v", env.Data)
	}
}

func TestServer_DropByCode(t *testing.T) {
	ts, eng := newTestServer(t)

	code, b := do(t, ts, http.MethodPost, "/drop", `{"source":"1.2","over":"2.1","offset":24,"half":"lower"}`)
	if code != http.StatusOK {
		t.Fatalf("drop: %d %s", code, b)
	}
	env := decodeEdit(t, b)
	if env.Data.Outcome.Status != engine.StatusApplied || !env.Data.Outcome.Changed {
		t.Fatalf("outcome=%+v", env.Data.Outcome)
	}
	if got := eng.Codes()["wbs-1-2"]; got != "2.1.1" {
		t.Fatalf("wbs-1-2 code=%q", got)
	}
	if len(env.Data.Rows) != 12 {
		t.Fatalf("rows=%d", len(env.Data.Rows))
	}
}

func TestServer_RejectionsAndBadInput(t *testing.T) {
	ts, eng := newTestServer(t)
	before := eng.Tree()

	code, b := do(t, ts, http.MethodPost, "/drop", `{"source":"wbs-1","over":"wbs-1-1"}`)
	if code != http.StatusConflict {
		t.Fatalf("cyclic: %d %s", code, b)
	}
	if env := decodeEdit(t, b); env.Data.Outcome.Reason != store.ReasonCyclicMove {
		t.Fatalf("outcome=%+v", env.Data.Outcome)
	}

	code, b = do(t, ts, http.MethodPost, "/drop", `{"source":"nope","over":"wbs-1"}`)
	if code != http.StatusNotFound {
		t.Fatalf("not found: %d %s", code, b)
	}

	code, b = do(t, ts, http.MethodPost, "/drop", `{"over":"wbs-1"}`)
	if code != http.StatusBadRequest || !strings.Contains(string(b), `"error":true`) {
		t.Fatalf("missing source: %d %s", code, b)
	}

	code, _ = do(t, ts, http.MethodPost, "/drop", `{"source":"wbs-1","over":"wbs-2","half":"sideways"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("bad half: %d", code)
	}

	if eng.Tree() != before {
		t.Fatalf("tree replaced by rejected requests")
	}
}

func TestServer_PolicySwitch(t *testing.T) {
	ts, _ := newTestServer(t)

	code, b := do(t, ts, http.MethodPut, "/policy", `{"policy":"sibling"}`)
	if code != http.StatusOK || !strings.Contains(string(b), `"sibling"`) {
		t.Fatalf("policy: %d %s", code, b)
	}
	code, b = do(t, ts, http.MethodPost, "/drop", `{"source":"wbs-1-2","over":"wbs-2-1"}`)
	if code != http.StatusConflict {
		t.Fatalf("drop: %d %s", code, b)
	}
	if env := decodeEdit(t, b); env.Data.Outcome.Reason != store.ReasonDifferentLevel {
		t.Fatalf("outcome=%+v", env.Data.Outcome)
	}

	code, _ = do(t, ts, http.MethodPut, "/policy", `{"policy":"chaos"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown policy: %d", code)
	}
}

func TestServer_MoveCollapseAndReset(t *testing.T) {
	ts, eng := newTestServer(t)

	code, b := do(t, ts, http.MethodPost, "/move", `{"source":"wbs-3","parent":"root","index":0}`)
	if code != http.StatusOK {
		t.Fatalf("move: %d %s", code, b)
	}
	if got := eng.Codes()["wbs-3"]; got != "1" {
		t.Fatalf("wbs-3 code=%q", got)
	}

	code, b = do(t, ts, http.MethodPost, "/collapse/wbs-2", "")
	if code != http.StatusOK {
		t.Fatalf("collapse: %d %s", code, b)
	}
	if got := len(eng.Rows()); got != 9 {
		t.Fatalf("visible rows=%d", got)
	}

	code, _ = do(t, ts, http.MethodPost, "/collapse/missing", "")
	if code != http.StatusNotFound {
		t.Fatalf("collapse missing: %d", code)
	}

	code, _ = do(t, ts, http.MethodPost, "/reset", "")
	if code != http.StatusOK {
		t.Fatalf("reset: %d", code)
	}
	if eng.Codes()["wbs-3"] != "3" || len(eng.Rows()) != 12 {
		t.Fatalf("reset did not restore the initial outline")
	}
}

func TestServer_DragGesture(t *testing.T) {
	ts, eng := newTestServer(t)

	code, _ := do(t, ts, http.MethodPost, "/drag/start", `{"source":"wbs-2-3"}`)
	if code != http.StatusOK {
		t.Fatalf("start: %d", code)
	}
	code, _ = do(t, ts, http.MethodPost, "/drag/over", `{"over":"wbs-2-1","half":"upper"}`)
	if code != http.StatusOK {
		t.Fatalf("over: %d", code)
	}
	code, b := do(t, ts, http.MethodPost, "/drag/end", "")
	if code != http.StatusOK {
		t.Fatalf("end: %d %s", code, b)
	}
	if got := eng.Codes()["wbs-2-3"]; got != "2.1" {
		t.Fatalf("wbs-2-3 code=%q", got)
	}

	code, b = do(t, ts, http.MethodPost, "/drag/end", "")
	if code != http.StatusOK || decodeEdit(t, b).Data.Outcome.Status != engine.StatusIgnored {
		t.Fatalf("second end: %d %s", code, b)
	}
}

func TestServer_HomeHelpAndMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	code, b := do(t, ts, http.MethodGet, "/", "")
	if code != http.StatusOK || !strings.Contains(string(b), "Sample project") || !strings.Contains(string(b), "Stakeholder Interviews") {
		t.Fatalf("home: %d", code)
	}

	if !strings.Contains(string(b), `href="/help/replay"`) {
		t.Fatalf("home does not link the help topics")
	}

	code, b = do(t, ts, http.MethodGet, "/help/keys", "")
	if code != http.StatusOK || !strings.Contains(string(b), "<table>") {
		t.Fatalf("help: %d %s", code, b)
	}
	code, b = do(t, ts, http.MethodGet, "/help/policies", "")
	if code != http.StatusOK || !strings.Contains(string(b), `<a href="#rejection-reasons">Rejection reasons</a>`) {
		t.Fatalf("policies index: %d %s", code, b)
	}
	code, _ = do(t, ts, http.MethodGet, "/help/nope", "")
	if code != http.StatusNotFound {
		t.Fatalf("unknown help: %d", code)
	}

	_, _ = do(t, ts, http.MethodPost, "/drop", `{"source":"wbs-1","over":"wbs-1-1"}`)
	code, b = do(t, ts, http.MethodGet, "/metrics", "")
	if code != http.StatusOK || !strings.Contains(string(b), `wbs_drops_total{reason="cyclic_move",status="rejected"} 1`) {
		t.Fatalf("metrics: %d %s", code, b)
	}
}

func TestRenderMarkdownPage_CollectsSections(t *testing.T) {
	p := renderMarkdownPage("# Drop policies\n\ntext <b>raw</b>\n\n## Rejection reasons\n\n- `not_found`\n")
	if len(p.Sections) != 2 {
		t.Fatalf("sections=%+v", p.Sections)
	}
	if p.Sections[0].ID != "drop-policies" || p.Sections[0].Level != 1 || p.Sections[1].Title != "Rejection reasons" {
		t.Fatalf("sections=%+v", p.Sections)
	}
	body := string(p.Body)
	if !strings.Contains(body, `<h2 id="rejection-reasons">`) || strings.Contains(body, "<b>raw</b>") {
		t.Fatalf("body=%s", body)
	}
	if empty := renderMarkdownPage("  "); empty.Body != "" || len(empty.Sections) != 0 {
		t.Fatalf("empty=%+v", empty)
	}
}

func TestServer_PanicReleasesEngineLock(t *testing.T) {
	eng, err := engine.New(store.SampleSnapshot())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	s, err := NewServer(ServerConfig{Engine: eng})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	boom := chimiddleware.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.locked(func() { panic(store.InvariantError{Op: "move", Detail: "forced"}) })
	}))
	rec := httptest.NewRecorder()
	boom.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/drop", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}

	if !s.mu.TryLock() {
		t.Fatalf("engine lock still held after a recovered panic")
	}
	s.mu.Unlock()

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rows", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("rows status=%d", rec.Code)
	}
}
