package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/clipspeak/internal/extract"
	"github.com/dgnsrekt/clipspeak/internal/metrics"
	"github.com/dgnsrekt/clipspeak/internal/queue"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []queue.Job
	cleared int
	err     error
}

func (q *fakeQueue) EnqueueFrom(source, text string) (queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return queue.Job{}, q.err
	}
	job := queue.Job{ID: uuid.New(), Text: text, Source: source, EnqueuedAt: time.Now()}
	q.jobs = append(q.jobs, job)
	return job, nil
}

func (q *fakeQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	q.jobs = nil
	q.cleared++
	return n
}

func (q *fakeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *fakeQueue) State() queue.State { return queue.StateIdle }

type fakeExtractor struct {
	text string
	err  error
	urls []string
}

func (e *fakeExtractor) Extract(_ context.Context, url string) (string, error) {
	e.urls = append(e.urls, url)
	return e.text, e.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTTSRoute(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
		wantJobs int
	}{
		{"queued", `{"text":"Hello **world**"}`, http.StatusOK, "Text added to TTS queue.", 1},
		{"empty object", `{}`, http.StatusBadRequest, "Text is required", 0},
		{"empty text", `{"text":""}`, http.StatusBadRequest, "Text is required", 0},
		{"blank text", `{"text":"  \n\t "}`, http.StatusBadRequest, "Text is required", 0},
		{"malformed", `{"text":`, http.StatusBadRequest, "Text is required", 0},
		{"wrong type", `{"text":42}`, http.StatusBadRequest, "Text is required", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQueue{}
			rec := do(t, New(q).Handler(), http.MethodPost, "/tts", tc.body)

			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			if got := rec.Body.String(); got != tc.wantBody {
				t.Errorf("body = %q, want %q", got, tc.wantBody)
			}
			if q.Len() != tc.wantJobs {
				t.Errorf("queue length = %d, want %d", q.Len(), tc.wantJobs)
			}
		})
	}
}

func TestTTSRouteNormalizesText(t *testing.T) {
	q := &fakeQueue{}
	do(t, New(q).Handler(), http.MethodPost, "/tts", `{"text":"Hello **world** & friends"}`)

	if len(q.jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(q.jobs))
	}
	job := q.jobs[0]
	if job.Text != "Hello world &amp; friends" {
		t.Errorf("job text = %q", job.Text)
	}
	if job.Source != "http" {
		t.Errorf("job source = %q, want http", job.Source)
	}
}

func TestTTSRouteQueueClosed(t *testing.T) {
	q := &fakeQueue{err: queue.ErrQueueClosed}
	rec := do(t, New(q).Handler(), http.MethodPost, "/tts", `{"text":"hi"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, New(&fakeQueue{}).Handler(), http.MethodGet, "/tts", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}
}

func TestExtractRoute(t *testing.T) {
	tests := []struct {
		name      string
		extractor *fakeExtractor
		body      string
		wantCode  int
		wantBody  string
		wantJobs  int
	}{
		{
			name:      "queued",
			extractor: &fakeExtractor{text: "Some page text"},
			body:      `{"url":"https://example.com"}`,
			wantCode:  http.StatusOK,
			wantBody:  "Text extracted and added to TTS queue.",
			wantJobs:  1,
		},
		{
			name:      "missing url",
			extractor: &fakeExtractor{},
			body:      `{}`,
			wantCode:  http.StatusBadRequest,
			wantBody:  "URL is required",
		},
		{
			name:      "fetch failure",
			extractor: &fakeExtractor{err: errors.New("connection refused")},
			body:      `{"url":"https://example.com"}`,
			wantCode:  http.StatusInternalServerError,
			wantBody:  "Error processing your request: connection refused",
		},
		{
			name:      "private address",
			extractor: &fakeExtractor{err: fmt.Errorf("fetching x: %w", extract.ErrPrivateAddress)},
			body:      `{"url":"http://127.0.0.1"}`,
			wantCode:  http.StatusBadRequest,
			wantBody:  "Error processing your request: fetching x: " + extract.ErrPrivateAddress.Error(),
		},
		{
			name:      "nothing to read",
			extractor: &fakeExtractor{text: "   "},
			body:      `{"url":"https://example.com"}`,
			wantCode:  http.StatusInternalServerError,
			wantBody:  "Error processing your request: " + extract.ErrNoText.Error(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQueue{}
			rec := do(t, New(q, WithExtractor(tc.extractor)).Handler(), http.MethodPost, "/extract-text", tc.body)

			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			if got := rec.Body.String(); got != tc.wantBody {
				t.Errorf("body = %q, want %q", got, tc.wantBody)
			}
			if q.Len() != tc.wantJobs {
				t.Errorf("queue length = %d, want %d", q.Len(), tc.wantJobs)
			}
		})
	}
}

func TestExtractRouteDisabled(t *testing.T) {
	rec := do(t, New(&fakeQueue{}).Handler(), http.MethodPost, "/extract-text", `{"url":"https://example.com"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}

func TestStopRoute(t *testing.T) {
	q := &fakeQueue{}
	h := New(q).Handler()
	do(t, h, http.MethodPost, "/tts", `{"text":"one"}`)
	do(t, h, http.MethodPost, "/tts", `{"text":"two"}`)

	rec := do(t, h, http.MethodPost, "/stop-tts", "")
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "TTS playback stopped and queue cleared." {
		t.Errorf("body = %q", got)
	}
	if q.Len() != 0 || q.cleared != 1 {
		t.Errorf("queue length = %d, cleared = %d", q.Len(), q.cleared)
	}
}

func TestHealthRoute(t *testing.T) {
	q := &fakeQueue{}
	h := New(q).Handler()
	do(t, h, http.MethodPost, "/tts", `{"text":"one"}`)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	var got healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := healthResponse{Status: "ok", Queue: 1, State: "idle"}
	if got != want {
		t.Errorf("health = %+v, want %+v", got, want)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := New(&fakeQueue{}).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc123" {
		t.Errorf("request ID = %q, want abc123", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(&fakeQueue{}, WithMetrics(metrics.New(reg), reg)).Handler()

	do(t, h, http.MethodPost, "/tts", `{}`)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	want := `clipspeak_http_requests_total{code="4xx",route="POST /tts"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %q:\n%s", want, body)
	}
}

func TestMetricsRouteAbsentWithoutRegistry(t *testing.T) {
	rec := do(t, New(&fakeQueue{}).Handler(), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(New(&fakeQueue{}, WithHub(hub)).Handler())
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close() //nolint:errcheck

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	job := queue.Job{ID: uuid.New(), Source: "clipboard"}
	hub.OnEvent(queue.Event{Type: queue.EventEnqueued, Job: &job, Pending: 1})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got struct {
		Type    string `json:"type"`
		Pending int    `json:"pending"`
		Job     struct {
			ID     string `json:"id"`
			Source string `json:"source"`
		} `json:"job"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if got.Type != "enqueued" || got.Pending != 1 {
		t.Errorf("event = %+v", got)
	}
	if got.Job.ID != job.ID.String() || got.Job.Source != "clipboard" {
		t.Errorf("job = %+v", got.Job)
	}
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor := func(n int) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for hub.Clients() != n {
			if time.Now().After(deadline) {
				t.Fatalf("clients = %d, want %d", hub.Clients(), n)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	waitFor(1)
	_ = conn.Close()
	waitFor(0)

	// must not block or panic with no listeners
	hub.OnEvent(queue.Event{Type: queue.EventCleared})
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&fakeQueue{}).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("code = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestBanner(t *testing.T) {
	got := Banner(3000)
	if !strings.HasPrefix(got, "Server listening at http://localhost:3000 and http://") {
		t.Errorf("banner = %q", got)
	}
	if net.ParseIP(LocalIP()) == nil {
		t.Errorf("LocalIP() = %q is not an IP", LocalIP())
	}
}
