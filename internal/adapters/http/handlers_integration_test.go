package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fleetuptime/internal/adapters/repository/memory"
	"fleetuptime/internal/core/domain"
	"fleetuptime/internal/core/ports"
	"fleetuptime/internal/core/services"
	"fleetuptime/internal/observability"
)

// stubStore answers every query with the same counts and remembers the last
// query it saw.
type stubStore struct {
	counts []domain.DeviceCount
	err    error
	last   ports.WindowQuery
	calls  int
}

func (s *stubStore) CountUpWindows(_ context.Context, q ports.WindowQuery) ([]domain.DeviceCount, error) {
	s.calls++
	s.last = q
	return s.counts, s.err
}

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

// newIntegrationServer wires the real service, memory cache, inventory,
// metrics and routes together into a Gin engine for integration testing.
func newIntegrationServer(t *testing.T, store *stubStore) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	inventory := memory.NewDeviceRepository()
	for _, id := range []string{"60-6b-44-84-dc-64", "aa-bb-cc-11-22-33", "sbc-0042"} {
		inventory.Add(id)
	}

	metrics := observability.NewMetrics()
	// Wednesday 2024-01-10 12:00 UTC
	clock := stubClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := services.NewUptimeService(store,
		services.WithClock(clock),
		services.WithInventory(inventory),
		services.WithMetrics(metrics),
	)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Service:  svc,
		Cache:    memory.NewResultCache(time.Hour),
		Location: time.UTC,
		Metrics:  metrics,
	})
	return r
}

// Full flow: compute the last Monday week, chart it, export it.
func TestIntegration_LastMondayWeek_ComputeChartExport(t *testing.T) {
	store := &stubStore{counts: []domain.DeviceCount{
		{DeviceID: "60-6b-44-84-dc-64", Windows: 151200},
		{DeviceID: "aa-bb-cc-11-22-33", Windows: 30240},
	}}
	r := newIntegrationServer(t, store)

	w := doGet(r, "/api/v1/uptime?preset=last-monday-week")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(t, w)

	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	wantStop := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if !store.last.Range.Start.Equal(wantStart) || !store.last.Range.Stop.Equal(wantStop) {
		t.Fatalf("expected query over %v..%v, got %v..%v", wantStart, wantStop, store.last.Range.Start, store.last.Range.Stop)
	}
	if len(store.last.ExcludedStates) != 2 {
		t.Fatalf("expected ERROR and STANDBY excluded, got %v", store.last.ExcludedStates)
	}

	var resp UptimeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	got := map[string]string{}
	for _, row := range resp.Rows {
		got[row.DeviceID] = row.UptimeReadable
	}
	if got["60-6b-44-84-dc-64"] != "100.00%" || got["aa-bb-cc-11-22-33"] != "20.00%" || got[domain.TotalAverageID] != "60.00%" {
		t.Fatalf("unexpected rows: %v", got)
	}
	if len(resp.MissingDevices) != 1 || resp.MissingDevices[0] != "sbc-0042" {
		t.Fatalf("expected sbc-0042 reported missing, got %v", resp.MissingDevices)
	}

	w = doGet(r, "/api/v1/uptime/chart?include_total=true", cookie)
	var points []ChartPoint
	if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
		t.Fatalf("failed to unmarshal chart: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(points))
	}

	w = doGet(r, "/api/v1/uptime/export", cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 from export, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "total_average,0.6,60.00%") {
		t.Fatalf("expected aggregate line in csv, got %q", w.Body.String())
	}
	if store.calls != 1 {
		t.Fatalf("expected chart and export to reuse the cached result, got %d queries", store.calls)
	}
}

// Sessions do not see each other's results.
func TestIntegration_ExportIsSessionScoped(t *testing.T) {
	store := &stubStore{counts: []domain.DeviceCount{{DeviceID: "sbc-0042", Windows: 10}}}
	r := newIntegrationServer(t, store)

	if w := doGet(r, "/api/v1/uptime"); w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	// A fresh client has no cookie, so nothing to export.
	if w := doGet(r, "/api/v1/uptime/export"); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for another session, got %d", w.Code)
	}
}

// An empty reply is a valid, empty result with an undefined aggregate.
func TestIntegration_EmptyReplyIsNotAnError(t *testing.T) {
	r := newIntegrationServer(t, &stubStore{})

	w := doGet(r, "/api/v1/uptime?preset=range&start=2024-01-01&stop=2024-01-02")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp UptimeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Empty || len(resp.Rows) != 1 {
		t.Fatalf("expected empty result with only the aggregate row, got %+v", resp)
	}
	agg := resp.Rows[0]
	if agg.Uptime != nil || agg.UptimeReadable != domain.UndefinedReadable {
		t.Fatalf("expected undefined aggregate, got %+v", agg)
	}
	if len(resp.MissingDevices) != 3 {
		t.Fatalf("expected every inventory device missing, got %v", resp.MissingDevices)
	}
}

func TestIntegration_InvalidRangeReturns400(t *testing.T) {
	store := &stubStore{}
	r := newIntegrationServer(t, store)

	w := doGet(r, "/api/v1/uptime?preset=range&start=2024-01-08&stop=2024-01-08")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if store.calls != 0 {
		t.Fatalf("expected no store query for an invalid range, got %d", store.calls)
	}
}

func TestIntegration_StoreFailureReturns502AndKeepsPreviousExport(t *testing.T) {
	store := &stubStore{counts: []domain.DeviceCount{{DeviceID: "sbc-0042", Windows: 10}}}
	r := newIntegrationServer(t, store)

	cookie := sessionCookie(t, doGet(r, "/api/v1/uptime"))

	store.err = errors.New("dial tcp: connection refused")
	if w := doGet(r, "/api/v1/uptime", cookie); w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", w.Code)
	}

	if w := doGet(r, "/api/v1/uptime/export", cookie); w.Code != http.StatusOK {
		t.Fatalf("expected the earlier result to remain exportable, got %d", w.Code)
	}
}

func TestIntegration_MetricsEndpoint(t *testing.T) {
	r := newIntegrationServer(t, &stubStore{counts: []domain.DeviceCount{{DeviceID: "sbc-0042", Windows: 1}}})

	doGet(r, "/api/v1/uptime")
	w := doGet(r, "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"uptime_computations_total", "telemetry_query_duration_seconds", "http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected metric %s in /metrics output", name)
		}
	}
}
