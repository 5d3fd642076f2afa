package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/confirm"
	"github.com/rustyeddy/tradebook/extract"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLoc = time.FixedZone("UTC+8", 8*3600)

var testNow = time.Date(2026, 1, 11, 14, 0, 0, 0, testLoc)

const ethArgs = `["2026-01-11", "10:52:41", "eth", "多", "3,090.4", "3094.2", "0.64"]`

const screenshotText = `ETHUSDT 永续 平多
开仓均价 3,090.40
平仓均价 3,094.20
数量 0.64
平仓盈亏 2.43
收益率 12.5%
平仓时间 2026-01-10 21:15:00`

type fakeRecognizer struct {
	page extract.Page
	err  error
}

func (f fakeRecognizer) Recognize(context.Context, []byte) (extract.Page, error) {
	return f.page, f.err
}

func newTestServer(t *testing.T, rec *fakeRecognizer) *Server {
	t.Helper()
	l := ledger.New(journal.NewMemoryStore(), confirm.NewMachine(confirm.NewMemoryStore(0)),
		ledger.WithLocation(testLoc),
		ledger.WithClock(func() time.Time { return testNow }),
	)
	ex := extract.New(extract.WithLocation(testLoc))
	if rec == nil {
		return New(l, ex, nil, testLoc)
	}
	return New(l, ex, rec, testLoc)
}

func do(t *testing.T, s *Server, method, path, who, contentType string, body []byte) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if who != "" {
		req.Header.Set(RequesterHeader, who)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func doJSON(t *testing.T, s *Server, method, path, who, body string) (int, map[string]any) {
	t.Helper()
	return do(t, s, method, path, who, "application/json", []byte(body))
}

func upload(t *testing.T, s *Server, who string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "shot.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return do(t, s, http.MethodPost, "/api/v1/trades/screenshot", who, mw.FormDataContentType(), buf.Bytes())
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	code, body := do(t, s, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tradebook_http_requests_total")
}

func TestSubmitDuplicateAndDecide(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	args := `{"args": ` + ethArgs + `}`

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/trades", "alice", args)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "committed", body["state"])
	trade := body["trade"].(map[string]any)
	assert.Equal(t, float64(1), trade["id"])
	assert.Equal(t, "ETH", trade["symbol"])
	assert.Equal(t, "LONG", trade["side"])
	assert.InDelta(t, 2.0361856, trade["realized_profit"].(float64), 1e-9)
	assert.Equal(t, "2026-01-11 10:52:41", trade["close_time"])
	assert.Equal(t, "2026-01-11", trade["settlement_day"])
	assert.NotNil(t, body["totals"])

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/trades", "alice", args)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "duplicate_detected", body["state"])
	pendingID := body["pending_id"].(string)
	assert.NotEmpty(t, pendingID)
	assert.Nil(t, body["totals"])

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/trades/pending", "alice", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, pendingID, body["id"])

	code, _ = doJSON(t, s, http.MethodGet, "/api/v1/trades/pending", "bob", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/trades/decision", "alice", `{"decision": "yes"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "committed", body["state"])
	assert.Equal(t, float64(2), body["trade"].(map[string]any)["id"])

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/trades/decision", "alice", `{"decision": "yes"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "no pending confirmation")
}

func TestDecideReject(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	args := `{"args": ` + ethArgs + `}`
	code, _ := doJSON(t, s, http.MethodPost, "/api/v1/trades", "alice", args)
	require.Equal(t, http.StatusCreated, code)
	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/trades", "alice", args)
	require.Equal(t, http.StatusAccepted, code)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/trades/decision", "alice", `{"decision": "maybe"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "unknown decision")

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/trades/decision", "alice", `{"decision": "否"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "discarded", body["state"])

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/trades", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["trades"], 1)
}

func TestSubmitRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		who  string
		body string
		code int
	}{
		{"no requester", "", `{"args": ` + ethArgs + `}`, http.StatusBadRequest},
		{"short args", "alice", `{"args": ["2026-01-11", "eth"]}`, http.StatusBadRequest},
		{"bad json", "alice", `{"args": `, http.StatusBadRequest},
		{"bad side", "alice", `{"symbol": "eth", "side": "up", "entry": 1, "exit": 2, "qty": 1}`, http.StatusBadRequest},
		{"no symbol", "alice", `{"side": "long", "entry": 1, "exit": 2, "qty": 1}`, http.StatusBadRequest},
		{"zero qty", "alice", `{"symbol": "eth", "side": "long", "entry": 1, "exit": 2, "qty": 0}`, http.StatusBadRequest},
		{"bad time", "alice", `{"symbol": "eth", "side": "short", "entry": 1, "exit": 2, "qty": 1, "close_time": "yesterday"}`, http.StatusBadRequest},
		{"fields", "alice", `{"symbol": "btc", "side": "空", "entry": 100, "exit": 90, "qty": 1, "close_time": "2026/1/9 8:00:00"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, nil)
			code, body := doJSON(t, s, http.MethodPost, "/api/v1/trades", tt.who, tt.body)
			assert.Equal(t, tt.code, code, body)
		})
	}
}

func TestScreenshot(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeRecognizer{page: extract.Page{Text: screenshotText}})
	code, body := upload(t, s, "alice")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "regex", body["pass"])
	assert.Nil(t, body["suspicious"])
	trade := body["trade"].(map[string]any)
	assert.Equal(t, "ETH", trade["symbol"])
	assert.Equal(t, "LONG", trade["side"])
	assert.Equal(t, "2026-01-10 21:15:00", trade["close_time"])
}

func TestScreenshotFailures(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeRecognizer{page: extract.Page{Text: "hello world"}})
	code, body := upload(t, s, "alice")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "hello world", body["preview"])
	assert.NotEmpty(t, body["attempts"])

	s = newTestServer(t, &fakeRecognizer{err: errors.New("tesseract missing")})
	code, body = upload(t, s, "alice")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["error"], "tesseract missing")

	s = newTestServer(t, nil)
	code, _ = upload(t, s, "alice")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, s, http.MethodPost, "/api/v1/trades/screenshot", "alice", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestBatchImport(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	text := strings.Join([]string{
		"2026-01-11 10:52:41 eth 多 3090.4 3094.2 0.64",
		"2026/1/10 9:00:00 btc 空 42000 41800 0.01",
		"not a trade",
		"",
		"2026-01-11 10:52:41 ETH long 3090.4 3094.2 0.64",
	}, "\n")

	code, body := do(t, s, http.MethodPost, "/api/v1/trades/batch", "", "text/plain", []byte(text))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["imported"])
	assert.Equal(t, float64(1), body["duplicates"])
	bad := body["malformed"].([]any)
	require.Len(t, bad, 1)
	assert.Equal(t, float64(3), bad[0].(map[string]any)["line"])
}

func TestTradeLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	code, _ := doJSON(t, s, http.MethodPost, "/api/v1/trades", "alice", `{"args": `+ethArgs+`}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/trades/1", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ETH", body["symbol"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades/1?format=org", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "** Trade #1: ETH 多")

	code, _ = doJSON(t, s, http.MethodGet, "/api/v1/trades/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/trades/reindex", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, s, http.MethodDelete, "/api/v1/trades/1", "", "")
	assert.Equal(t, http.StatusNoContent, code)

	code, body = doJSON(t, s, http.MethodDelete, "/api/v1/trades/1", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "not found")

	code, _ = doJSON(t, s, http.MethodDelete, "/api/v1/trades", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = doJSON(t, s, http.MethodDelete, "/api/v1/trades?confirm=yes", "", "")
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = doJSON(t, s, http.MethodGet, "/api/v1/trades?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBalanceEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/balance/initial", "alice", `{"amount": "10,000"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(10000), body["current"])

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/balance/initial", "alice", `{"amount": "5"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/balance/deposit", "alice", `{"amount": "-5"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/balance/deposit", "", `{"amount": "5"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/balance/withdraw", "alice", `{"amount": "2500.5"}`)
	require.Equal(t, http.StatusOK, code)

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/balance", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 7499.5, body["current"].(float64), 1e-9)
	assert.InDelta(t, 2500.5, body["withdrawals"].(float64), 1e-9)
}

func TestStatsEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	code, _ := doJSON(t, s, http.MethodPost, "/api/v1/trades", "alice", `{"args": `+ethArgs+`}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/stats/period?p=all", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["trades"])
	assert.Equal(t, "", body["since"])

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/stats/period", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "day", body["period"])
	assert.Equal(t, "2026-01-11 00:00:00", body["since"])

	code, _ = doJSON(t, s, http.MethodGet, "/api/v1/stats/period?p=decade", "", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/stats/daily", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["days"], 1)
	assert.Equal(t, "2026-01-11 08:00:00", body["pending_since"])

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/stats/winrate", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(100), body["win_rate"])

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/stats/equity", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["points"], 2)

	code, body = doJSON(t, s, http.MethodGet, "/api/v1/stats/totals", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 2.0361856, body["all"].(float64), 1e-9)
}
