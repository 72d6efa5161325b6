package httpserver

import (
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

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
	"github.com/MrSnakeDoc/beacon/internal/metrics"
	"github.com/MrSnakeDoc/beacon/internal/registry"
	"github.com/MrSnakeDoc/beacon/internal/scheduler"
	"github.com/MrSnakeDoc/beacon/internal/store"
	"github.com/MrSnakeDoc/beacon/internal/store/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	handler http.Handler
	clock   *testClock
	metrics *metrics.Registry
}

func newTestEnv(t *testing.T, st store.Store, mutate ...func(*deps.Deps)) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := metrics.NewRegistry()
	log := logger.NewNop()
	if st == nil {
		st = memory.New()
	}

	d := deps.Deps{
		Logger:          log,
		StartTime:       clock.Now(),
		Version:         "test",
		TimeNow:         clock.Now,
		Registry:        registry.New(st, log, registry.WithClock(clock.Now), registry.WithMetrics(m)),
		Metrics:         m,
		Location:        time.UTC,
		RateLimitBurst:  1000,
		RateLimitPerMin: 1000,
	}
	for _, fn := range mutate {
		fn(&d)
	}

	return &testEnv{handler: NewRouter(d), clock: clock, metrics: m}
}

func (e *testEnv) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, "application/json", body)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.postJSON("/register", `{"Name": "svc-a", "Period": 30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","id":1}`, rec.Body.String())

	env.clock.Advance(10 * time.Second)
	rec = env.postJSON("/1/update", `{"Status": "DOWN"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/1/info", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"svc-a","status":"DOWN","last_update":"2024-03-01T12:00:10Z"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/1/status", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"DOWN"}`, rec.Body.String())

	env.clock.Advance(5 * time.Second)
	rec = env.do(http.MethodGet, "/api/services", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"name":"svc-a","status":"DOWN","period":30,
		"last_update":"2024-03-01T12:00:10Z","ok":false,"fresh":true}]`, rec.Body.String())

	env.clock.Advance(26 * time.Second)
	rec = env.do(http.MethodGet, "/api/services", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, false, views[0]["fresh"])
}

func TestListServicesEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/services", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
	}{
		{name: "integer period", contentType: "application/json", body: `{"Name":"a","Period":60}`, wantCode: http.StatusOK},
		{name: "string period", contentType: "application/json", body: `{"Name":"a","Period":" 45 "}`, wantCode: http.StatusOK},
		{name: "zero period", contentType: "application/json", body: `{"Name":"a","Period":0}`, wantCode: http.StatusOK},
		{name: "charset parameter", contentType: "application/json; charset=utf-8", body: `{"Name":"a","Period":5}`, wantCode: http.StatusOK},
		{name: "wrong content type", contentType: "text/plain", body: `{"Name":"a","Period":5}`, wantCode: http.StatusBadRequest},
		{name: "missing content type", contentType: "", body: `{"Name":"a","Period":5}`, wantCode: http.StatusBadRequest},
		{name: "lowercase keys", contentType: "application/json", body: `{"name":"a","period":5}`, wantCode: http.StatusBadRequest},
		{name: "missing name", contentType: "application/json", body: `{"Period":5}`, wantCode: http.StatusBadRequest},
		{name: "empty name", contentType: "application/json", body: `{"Name":"","Period":5}`, wantCode: http.StatusBadRequest},
		{name: "numeric name", contentType: "application/json", body: `{"Name":5,"Period":5}`, wantCode: http.StatusBadRequest},
		{name: "missing period", contentType: "application/json", body: `{"Name":"a"}`, wantCode: http.StatusBadRequest},
		{name: "non numeric period", contentType: "application/json", body: `{"Name":"a","Period":"abc"}`, wantCode: http.StatusBadRequest},
		{name: "negative period", contentType: "application/json", body: `{"Name":"a","Period":-1}`, wantCode: http.StatusBadRequest},
		{name: "fractional period", contentType: "application/json", body: `{"Name":"a","Period":1.5}`, wantCode: http.StatusBadRequest},
		{name: "malformed json", contentType: "application/json", body: `{"Name":`, wantCode: http.StatusBadRequest},
		{name: "json array", contentType: "application/json", body: `[1,2]`, wantCode: http.StatusBadRequest},
		{name: "json null", contentType: "application/json", body: `null`, wantCode: http.StatusBadRequest},
		{name: "trailing data", contentType: "application/json", body: `{"Name":"a","Period":5} garbage`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(http.MethodPost, "/register", tt.contentType, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
			if tt.wantCode == http.StatusBadRequest {
				assert.JSONEq(t, `{"status":"Bad request"}`, rec.Body.String())
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"svc","Period":10}`).Code)

	rec := env.postJSON("/register", `{"Name":"svc","Period":20}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"Bad request"}`, rec.Body.String())

	// Names are case-sensitive.
	rec = env.postJSON("/register", `{"Name":"SVC","Period":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["id"])
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/999/info"},
		{method: http.MethodGet, path: "/999/status"},
		{method: http.MethodPost, path: "/999/update", body: `{"Status":"OK"}`},
		// Unknown id wins over a bad payload.
		{method: http.MethodPost, path: "/999/update", body: `{"status":"OK"}`},
		{method: http.MethodGet, path: "/abc/info"},
		{method: http.MethodGet, path: "/0/status"},
		{method: http.MethodGet, path: "/-1/status"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			ct := ""
			if p.body != "" {
				ct = "application/json"
			}
			rec := env.do(p.method, p.path, ct, p.body)
			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"status":"Service not found"}`, rec.Body.String())
		})
	}
}

func TestUpdateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"svc","Period":10}`).Code)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "wrong content type", contentType: "text/plain", body: `{"Status":"DOWN"}`},
		{name: "lowercase key", contentType: "application/json", body: `{"status":"DOWN"}`},
		{name: "empty status", contentType: "application/json", body: `{"Status":""}`},
		{name: "non string status", contentType: "application/json", body: `{"Status":3}`},
		{name: "malformed json", contentType: "application/json", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/1/update", tt.contentType, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"status":"Bad request"}`, rec.Body.String())
		})
	}

	// Nothing above changed the record.
	rec := env.do(http.MethodGet, "/1/status", "", "")
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil, func(d *deps.Deps) {
		d.Location = time.FixedZone("CET", 3600)
		d.StatusWidth = 4
	})

	require.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"billing","Period":60}`).Code)
	require.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"<search>","Period":60}`).Code)
	require.Equal(t, http.StatusOK, env.postJSON("/2/update", `{"Status":"DEGRADED"}`).Code)

	rec := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "billing")
	assert.Contains(t, body, "&lt;search&gt;", "names must be escaped")
	assert.Contains(t, body, "01.03.2024 13:00", "local time")
	assert.Contains(t, body, ">DEGR…<", "status truncated to width")
	assert.Contains(t, body, `title="DEGRADED"`, "full status kept")
}

func TestDashboardEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No services registered.")
}

type unreachableStore struct {
	*memory.Store
}

var errUnreachable = errors.New("connection refused")

func (unreachableStore) Ping(context.Context) error { return errUnreachable }

func (unreachableStore) List(context.Context) ([]domain.ServiceRecord, error) {
	return nil, errUnreachable
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true,"components":{"store":{"ok":true}}}`, rec.Body.String())

	env = newTestEnv(t, unreachableStore{Store: memory.New()})
	rec = env.do(http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ready"])
}

func TestStoreFailureIsInternalError(t *testing.T) {
	env := newTestEnv(t, unreachableStore{Store: memory.New()})

	rec := env.do(http.MethodGet, "/api/services", "", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"Internal error"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	env.clock.Advance(90 * time.Second)

	rec := env.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(90), body["uptime_seconds"])
	build, ok := body["build"].(map[string]any)
	require.True(t, ok, "build section missing: %v", body)
	assert.Equal(t, "test", build["version"])
	assert.NotContains(t, body, "services", "no sweep has run")
}

type fixedSweeps struct {
	sum scheduler.Summary
	at  time.Time
}

func (f fixedSweeps) LastSweep() (scheduler.Summary, time.Time, bool) { return f.sum, f.at, true }

func TestHealthzReportsLastSweep(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	env := newTestEnv(t, nil, func(d *deps.Deps) {
		d.Sweeps = fixedSweeps{sum: scheduler.Summary{Total: 3, Fresh: 2, OK: 1}, at: at}
	})

	rec := env.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	services, ok := decode(t, rec)["services"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), services["total"])
	assert.Equal(t, float64(2), services["fresh"])
	assert.Equal(t, float64(1), services["ok"])
	assert.Equal(t, "2024-05-01T10:00:00Z", services["swept_at"])
}

func TestOpsEndpointsRestricted(t *testing.T) {
	env := newTestEnv(t, nil, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := env.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	// The API itself is not restricted.
	rec := env.do(http.MethodGet, "/api/services", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"svc","Period":10}`).Code)
	require.Equal(t, http.StatusBadRequest, env.postJSON("/register", `{"Name":"svc","Period":10}`).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/1/info", "", "").Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.HTTPRequestsTotal.WithLabelValues("/register", "POST", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.HTTPRequestsTotal.WithLabelValues("/register", "POST", "400")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.HTTPRequestsTotal.WithLabelValues("/{id}/info", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.RegistrationsTotal.WithLabelValues("conflict")))

	rec := env.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "beacon_registrations_total")
}

func TestWriteRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, func(d *deps.Deps) {
		d.RateLimitBurst = 2
		d.RateLimitPerMin = 1
	})

	assert.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"a","Period":1}`).Code)
	assert.Equal(t, http.StatusOK, env.postJSON("/register", `{"Name":"b","Period":1}`).Code)

	rec := env.postJSON("/register", `{"Name":"c","Period":1}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Reads are not throttled.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/services", "", "").Code)
}

func TestWriteRateLimitDisabled(t *testing.T) {
	env := newTestEnv(t, nil, func(d *deps.Deps) {
		d.RateLimitBurst = 0
		d.RateLimitPerMin = 1
	})

	for i := 0; i < 50; i++ {
		rec := env.postJSON("/register", fmt.Sprintf(`{"Name":"svc-%d","Period":1}`, i))
		require.Equal(t, http.StatusOK, rec.Code, "registration %d", i)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil, func(d *deps.Deps) {
		d.CORSOrigins = []string{"https://status.example.com"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("Origin", "https://status.example.com")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://status.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/services", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
