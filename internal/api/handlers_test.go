package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/paywatch/internal/config"
	"github.com/user/paywatch/internal/dedupe"
	"github.com/user/paywatch/internal/domain"
	"github.com/user/paywatch/internal/fanout"
	"github.com/user/paywatch/internal/logbuf"
	"github.com/user/paywatch/internal/monitoring"
)

var errMockDispatch = errors.New("mock dispatch error")

// MockDispatcher implements Dispatcher for testing.
type MockDispatcher struct {
	mu           sync.Mutex
	DispatchFunc func(ctx context.Context, rec domain.FailureRecord) fanout.Result
	CallCount    int
	LastRecord   domain.FailureRecord
}

func (m *MockDispatcher) Dispatch(ctx context.Context, rec domain.FailureRecord) fanout.Result {
	m.mu.Lock()
	m.CallCount++
	m.LastRecord = rec
	m.mu.Unlock()
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, rec)
	}
	return fanout.Result{}
}

type testServer struct {
	server *Server
	mock   *MockDispatcher
	buffer *logbuf.Buffer
}

func newTestServer() *testServer {
	cfg := &config.Config{ServerPort: "0", DedupeTTLHours: 24}
	mock := &MockDispatcher{}
	buffer := logbuf.New(100)
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	server := NewServer(cfg, mock, dedupe.NewMemoryStore(), buffer, metrics, zap.NewNop())
	return &testServer{server: server, mock: mock, buffer: buffer}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	ts.server.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

const failedIntentBody = `{
	"type": "payment_intent.payment_failed",
	"data": {"object": {
		"id": "pi_1",
		"amount": 500,
		"currency": "usd",
		"billing_details": {"email": "a@b.com"}
	}}
}`

func TestWebhookRecognizedEventDispatchesNormalizedRecord(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/webhook/stripe", failedIntentBody)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	ack := decode[map[string]any](t, w)
	if ack["received"] != true {
		t.Errorf("response = %v, want received:true", ack)
	}

	if ts.mock.CallCount != 1 {
		t.Fatalf("dispatcher called %d times, want 1", ts.mock.CallCount)
	}
	rec := ts.mock.LastRecord
	if rec.ID != "pi_1" {
		t.Errorf("record ID = %q", rec.ID)
	}
	if rec.Amount != "5" {
		t.Errorf("record Amount = %q, want 5", rec.Amount)
	}
	if rec.Currency != "USD" {
		t.Errorf("record Currency = %q, want USD", rec.Currency)
	}
	if rec.Email != "a@b.com" {
		t.Errorf("record Email = %q", rec.Email)
	}
}

func TestWebhookIgnoresUnrecognizedType(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/webhook/stripe",
		`{"type": "payment_intent.succeeded", "data": {"object": {"id": "pi_2"}}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	ack := decode[map[string]any](t, w)
	if ack["received"] != true {
		t.Errorf("response = %v, want received:true", ack)
	}
	if ts.mock.CallCount != 0 {
		t.Errorf("dispatcher called %d times for ignored event", ts.mock.CallCount)
	}
}

func TestWebhookMalformedBody(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/webhook/stripe", `{"type": `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if resp["error"] == "" {
		t.Error("response missing error message")
	}
	if ts.mock.CallCount != 0 {
		t.Error("dispatcher called for malformed body")
	}
}

func TestWebhookDownstreamFailureReturns500(t *testing.T) {
	ts := newTestServer()
	ts.mock.DispatchFunc = func(context.Context, domain.FailureRecord) fanout.Result {
		return fanout.Result{RecordErr: errMockDispatch}
	}

	w := ts.do(t, http.MethodPost, "/webhook/stripe", failedIntentBody)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if !strings.Contains(resp["error"], "recorder") {
		t.Errorf("error = %q, want recorder-tagged message", resp["error"])
	}
}

func TestWebhookFailureReleasesDedupeMark(t *testing.T) {
	ts := newTestServer()
	ts.mock.DispatchFunc = func(context.Context, domain.FailureRecord) fanout.Result {
		return fanout.Result{NotifyErr: errMockDispatch}
	}

	if w := ts.do(t, http.MethodPost, "/webhook/stripe", failedIntentBody); w.Code != http.StatusInternalServerError {
		t.Fatalf("first delivery status = %d, want 500", w.Code)
	}

	// Upstream retry of the same event must dispatch again, not be dropped
	// as a duplicate.
	ts.mock.DispatchFunc = nil
	w := ts.do(t, http.MethodPost, "/webhook/stripe", failedIntentBody)

	if w.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", w.Code)
	}
	if ts.mock.CallCount != 2 {
		t.Errorf("dispatcher called %d times, want 2", ts.mock.CallCount)
	}
}

func TestWebhookDuplicateDeliverySkipsFanout(t *testing.T) {
	ts := newTestServer()

	if w := ts.do(t, http.MethodPost, "/webhook/stripe", failedIntentBody); w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}

	w := ts.do(t, http.MethodPost, "/webhook/stripe", failedIntentBody)

	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want 200", w.Code)
	}
	ack := decode[map[string]any](t, w)
	if ack["received"] != true || ack["duplicate"] != true {
		t.Errorf("response = %v, want received+duplicate", ack)
	}
	if ts.mock.CallCount != 1 {
		t.Errorf("dispatcher called %d times, want 1", ts.mock.CallCount)
	}
}

func TestTestEndpointDispatchesSyntheticRecord(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodPost, "/test", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := decode[testResponse](t, w)
	if !resp.Success {
		t.Errorf("success = false: %s", resp.Error)
	}
	if !strings.Contains(resp.Message, "test_") {
		t.Errorf("message = %q, want synthetic id", resp.Message)
	}

	if ts.mock.CallCount != 1 {
		t.Fatalf("dispatcher called %d times, want 1", ts.mock.CallCount)
	}
	rec := ts.mock.LastRecord
	if !strings.HasPrefix(rec.ID, "test_") {
		t.Errorf("record ID = %q, want test_ prefix", rec.ID)
	}
	var suffix int64
	if _, err := fmt.Sscanf(rec.ID, "test_%d", &suffix); err != nil || suffix == 0 {
		t.Errorf("record ID = %q, want numeric suffix", rec.ID)
	}
	if rec.Currency != "USD" || rec.Amount == "" || rec.Email == "" {
		t.Errorf("synthetic record missing placeholders: %+v", rec)
	}
}

func TestTestEndpointReportsFailure(t *testing.T) {
	ts := newTestServer()
	ts.mock.DispatchFunc = func(context.Context, domain.FailureRecord) fanout.Result {
		return fanout.Result{RecordErr: errMockDispatch, NotifyErr: errMockDispatch}
	}

	w := ts.do(t, http.MethodPost, "/test", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decode[testResponse](t, w)
	if resp.Success {
		t.Error("success = true on failed dispatch")
	}
	if resp.Error == "" {
		t.Error("error message missing")
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[healthResponse](t, w)
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	ts1, err := time.Parse(time.RFC3339, resp.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q not RFC3339: %v", resp.Timestamp, err)
	}
	if time.Since(ts1) > time.Minute {
		t.Errorf("timestamp %v not current", ts1)
	}
}

func TestLogsReturnsNewestTwenty(t *testing.T) {
	ts := newTestServer()
	for i := 0; i < 30; i++ {
		ts.buffer.Append("info", fmt.Sprintf("entry %d", i))
	}

	w := ts.do(t, http.MethodGet, "/logs", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[logsResponse](t, w)
	if len(resp.Logs) != 20 {
		t.Fatalf("returned %d entries, want 20", len(resp.Logs))
	}
	for i, e := range resp.Logs {
		want := fmt.Sprintf("entry %d", 10+i)
		if e.Message != want {
			t.Errorf("logs[%d].Message = %q, want %q", i, e.Message, want)
		}
	}
}

func TestLogsOnEmptyBuffer(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/logs", "")

	resp := decode[logsResponse](t, w)
	if len(resp.Logs) != 0 {
		t.Errorf("returned %d entries, want 0", len(resp.Logs))
	}
}

func TestIdentity(t *testing.T) {
	ts := newTestServer()

	w := ts.do(t, http.MethodGet, "/", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decode[identityResponse](t, w)
	if resp.Service != "paywatch" || resp.Status != "running" {
		t.Errorf("identity = %+v", resp)
	}
	if len(resp.Routes) == 0 {
		t.Error("routes list empty")
	}
}
