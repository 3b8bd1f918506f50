package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fleetuptime/internal/adapters/repository/memory"
	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
)

// testUptimeService implements ports.UptimeService and records calls.
type testUptimeService struct {
	lastPreset domain.Preset
	lastStart  time.Time
	lastStop   time.Time
	calls      int

	result *domain.UptimeResult
	err    error
}

func (s *testUptimeService) UptimeBetween(ctx context.Context, start, stop time.Time) (*domain.UptimeResult, error) {
	return s.Resolve(ctx, domain.PresetRange, start, stop)
}

func (s *testUptimeService) UptimeTrailingWeek(ctx context.Context) (*domain.UptimeResult, error) {
	return s.Resolve(ctx, domain.PresetTrailingWeek, time.Time{}, time.Time{})
}

func (s *testUptimeService) UptimeLastFullWeek(ctx context.Context) (*domain.UptimeResult, error) {
	return s.Resolve(ctx, domain.PresetLastMondayWeek, time.Time{}, time.Time{})
}

func (s *testUptimeService) Resolve(_ context.Context, preset domain.Preset, start, stop time.Time) (*domain.UptimeResult, error) {
	s.calls++
	s.lastPreset = preset
	s.lastStart = start
	s.lastStop = stop
	return s.result, s.err
}

// failingCache returns a non-sentinel error on every read.
type failingCache struct{ *memory.ResultCache }

func (failingCache) Get(string) (*domain.UptimeResult, error) {
	return nil, errors.New("disk on fire")
}

func weekResult(t *testing.T) *domain.UptimeResult {
	t.Helper()
	r, err := domain.NewTimeRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("failed to build range: %v", err)
	}
	// 151200 windows of 4s = 604800s = the whole week
	return domain.NewUptimeResult(r, []domain.DeviceCount{
		{DeviceID: "dev-a", Windows: 151200},
		{DeviceID: "dev-b", Windows: 75600},
	}, domain.DefaultWindowInterval)
}

func newTestServer(t *testing.T, svc *testUptimeService) (*gin.Engine, *memory.ResultCache) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache := memory.NewResultCache(time.Hour)
	r := gin.New()
	RegisterRoutes(r, Deps{Service: svc, Cache: cache, Location: time.UTC})
	return r, cache
}

func doGet(r *gin.Engine, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("expected %s cookie in response", SessionCookie)
	return nil
}

func TestGetUptime_RangePreset_ParsesDatesAndReturnsRows(t *testing.T) {
	svc := &testUptimeService{result: weekResult(t)}
	r, _ := newTestServer(t, svc)

	w := doGet(r, "/api/v1/uptime?preset=range&start=2024-01-01&stop=2024-01-08")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", w.Code, w.Body.String())
	}
	if svc.lastPreset != domain.PresetRange {
		t.Fatalf("expected preset range, got %q", svc.lastPreset)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !svc.lastStart.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, svc.lastStart)
	}
	if want := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC); !svc.lastStop.Equal(want) {
		t.Fatalf("expected stop %v, got %v", want, svc.lastStop)
	}

	var resp UptimeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Empty {
		t.Fatalf("expected non-empty result")
	}
	if len(resp.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(resp.Rows))
	}
	if resp.Rows[0].DeviceID != "dev-a" || resp.Rows[0].UptimeReadable != "100.00%" {
		t.Fatalf("unexpected first row: %+v", resp.Rows[0])
	}
	last := resp.Rows[2]
	if last.DeviceID != domain.TotalAverageID || last.UptimeReadable != "75.00%" {
		t.Fatalf("unexpected aggregate row: %+v", last)
	}
	if resp.MissingDevices == nil {
		t.Fatalf("expected missing_devices to be an empty list, not null")
	}
}

func TestGetUptime_DefaultPresetIsTrailingWeek(t *testing.T) {
	svc := &testUptimeService{result: weekResult(t)}
	r, _ := newTestServer(t, svc)

	w := doGet(r, "/api/v1/uptime")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", w.Code, w.Body.String())
	}
	if svc.lastPreset != domain.PresetTrailingWeek {
		t.Fatalf("expected trailing-week preset, got %q", svc.lastPreset)
	}
}

func TestGetUptime_BadInputReturns400(t *testing.T) {
	cases := map[string]string{
		"unknown preset": "/api/v1/uptime?preset=yesterday",
		"missing stop":   "/api/v1/uptime?preset=range&start=2024-01-01",
		"bad start":      "/api/v1/uptime?preset=range&start=01/01/2024&stop=2024-01-08",
		"bad stop":       "/api/v1/uptime?preset=range&start=2024-01-01&stop=soon",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &testUptimeService{result: weekResult(t)}
			r, _ := newTestServer(t, svc)

			w := doGet(r, path)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d, body=%s", w.Code, w.Body.String())
			}
			if svc.calls != 0 {
				t.Fatalf("expected service not to be called, got %d calls", svc.calls)
			}
		})
	}
}

func TestGetUptime_ServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: stop must be after start", coreerrors.ErrInvalidRange), http.StatusBadRequest},
		{fmt.Errorf("%w: connection refused", coreerrors.ErrQuery), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &testUptimeService{err: tc.err}
		r, cache := newTestServer(t, svc)

		w := doGet(r, "/api/v1/uptime?preset=range&start=2024-01-08&stop=2024-01-01")

		if w.Code != tc.want {
			t.Fatalf("error %v: expected status %d, got %d", tc.err, tc.want, w.Code)
		}
		if cache.Len() != 0 {
			t.Fatalf("error %v: expected nothing cached on failure", tc.err)
		}
	}
}

func TestGetUptime_IssuesSessionCookieAndCaches(t *testing.T) {
	svc := &testUptimeService{result: weekResult(t)}
	r, cache := newTestServer(t, svc)

	w := doGet(r, "/api/v1/uptime")
	cookie := sessionCookie(t, w)

	if !cookie.HttpOnly {
		t.Fatalf("expected session cookie to be HttpOnly")
	}
	if _, err := cache.Get(cookie.Value); err != nil {
		t.Fatalf("expected result cached under session %s, got %v", cookie.Value, err)
	}

	// Reusing the cookie must not issue a new one.
	w = doGet(r, "/api/v1/uptime", cookie)
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			t.Fatalf("expected existing session to be kept, got new cookie %s", c.Value)
		}
	}
}

func TestGetExport_NothingCachedReturns404(t *testing.T) {
	svc := &testUptimeService{result: weekResult(t)}
	r, _ := newTestServer(t, svc)

	w := doGet(r, "/api/v1/uptime/export")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Msg != "nothing to export" {
		t.Fatalf("unexpected message %q", resp.Msg)
	}
	if svc.calls != 0 {
		t.Fatalf("export must never recompute, got %d service calls", svc.calls)
	}
}

func TestGetExport_ReturnsCachedCSV(t *testing.T) {
	svc := &testUptimeService{result: weekResult(t)}
	r, _ := newTestServer(t, svc)

	cookie := sessionCookie(t, doGet(r, "/api/v1/uptime"))
	w := doGet(r, "/api/v1/uptime/export", cookie)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	disp := w.Header().Get("Content-Disposition")
	if !strings.Contains(disp, "uptimes_2024-01-01T00-00-00--2024-01-08T00-00-00.csv") {
		t.Fatalf("unexpected Content-Disposition %q", disp)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines: %q", len(lines), w.Body.String())
	}
	if lines[0] != "device_id,uptime,uptime_readable" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if svc.calls != 1 {
		t.Fatalf("expected exactly one computation, got %d", svc.calls)
	}
}

func TestGetExport_CacheFailureReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Deps{Service: &testUptimeService{}, Cache: failingCache{memory.NewResultCache(0)}})

	w := doGet(r, "/api/v1/uptime/export")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
}

func TestGetChart_AggregateInclusionIsOptional(t *testing.T) {
	svc := &testUptimeService{result: weekResult(t)}
	r, _ := newTestServer(t, svc)
	cookie := sessionCookie(t, doGet(r, "/api/v1/uptime"))

	var points []ChartPoint
	w := doGet(r, "/api/v1/uptime/chart", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("failed to unmarshal chart: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 bars without total, got %d", len(points))
	}

	w = doGet(r, "/api/v1/uptime/chart?include_total=true", cookie)
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("failed to unmarshal chart: %v", err)
	}
	if len(points) != 3 || points[2].DeviceID != domain.TotalAverageID {
		t.Fatalf("expected total_average as third bar, got %+v", points)
	}
	if points[2].Label != "75.00%" {
		t.Fatalf("unexpected aggregate label %q", points[2].Label)
	}

	w = doGet(r, "/api/v1/uptime/chart?include_total=maybe", cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad include_total, got %d", w.Code)
	}
}

func TestGetChart_EmptyResultSkipsUndefinedAggregate(t *testing.T) {
	r0, _ := domain.NewTimeRange(time.Unix(0, 0), time.Unix(3600, 0))
	svc := &testUptimeService{result: domain.NewUptimeResult(r0, nil, domain.DefaultWindowInterval)}
	r, _ := newTestServer(t, svc)
	cookie := sessionCookie(t, doGet(r, "/api/v1/uptime"))

	w := doGet(r, "/api/v1/uptime/chart?include_total=true", cookie)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty series, got %s", w.Body.String())
	}
}

func TestGetHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterRoutes(r, Deps{Service: &testUptimeService{}, Cache: memory.NewResultCache(0)})
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := doGet(r, path)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, w.Code)
		}
		for _, c := range w.Result().Cookies() {
			if c.Name == SessionCookie {
				t.Fatalf("%s: expected no session cookie on health checks", path)
			}
		}
	}

	r = gin.New()
	RegisterRoutes(r, Deps{
		Service: &testUptimeService{},
		Cache:   memory.NewResultCache(0),
		Health:  func(context.Context) error { return errors.New("influx unreachable") },
	})
	if w := doGet(r, "/health"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
}
