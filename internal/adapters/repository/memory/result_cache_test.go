package memory

import (
	"errors"
	"testing"
	"time"

	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
)

func sampleResult(t *testing.T, windows int64) *domain.UptimeResult {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := domain.NewTimeRange(start, start.Add(400*time.Second))
	if err != nil {
		t.Fatalf("NewTimeRange returned error: %v", err)
	}
	return domain.NewUptimeResult(r, []domain.DeviceCount{{DeviceID: "dev-1", Windows: windows}}, 4*time.Second)
}

func TestResultCache_GetBeforeSaveIsNoCachedResult(t *testing.T) {
	c := NewResultCache(time.Hour)

	res, err := c.Get("session-1")
	if !errors.Is(err, coreerrors.ErrNoCachedResult) {
		t.Fatalf("expected ErrNoCachedResult, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil result, got %+v", res)
	}
}

func TestResultCache_SaveReplacesPerSession(t *testing.T) {
	c := NewResultCache(time.Hour)

	if err := c.Save("a", sampleResult(t, 50)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := c.Save("b", sampleResult(t, 25)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := c.Save("a", sampleResult(t, 100)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	a, err := c.Get("a")
	if err != nil {
		t.Fatalf("Get(a) returned error: %v", err)
	}
	if a.Uptimes["dev-1"] != 1.0 {
		t.Fatalf("expected session a to hold the latest result, got %v", a.Uptimes["dev-1"])
	}

	b, err := c.Get("b")
	if err != nil {
		t.Fatalf("Get(b) returned error: %v", err)
	}
	if b.Uptimes["dev-1"] != 0.25 {
		t.Fatalf("expected session b untouched, got %v", b.Uptimes["dev-1"])
	}
}

func TestResultCache_GetReturnsCopy(t *testing.T) {
	c := NewResultCache(0)
	_ = c.Save("a", sampleResult(t, 50))

	got, _ := c.Get("a")
	got.Rows[0].Uptime = 999

	again, _ := c.Get("a")
	if again.Rows[0].Uptime != 0.5 {
		t.Fatalf("expected cached result to be unaffected, got %v", again.Rows[0].Uptime)
	}
}

func TestResultCache_ExpiryAndPurge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewResultCache(time.Minute)
	c.now = func() time.Time { return now }

	_ = c.Save("old", sampleResult(t, 50))
	now = now.Add(30 * time.Second)
	_ = c.Save("fresh", sampleResult(t, 50))
	now = now.Add(45 * time.Second)

	if _, err := c.Get("old"); !errors.Is(err, coreerrors.ErrNoCachedResult) {
		t.Fatalf("expected expired entry to be absent, got %v", err)
	}
	if _, err := c.Get("fresh"); err != nil {
		t.Fatalf("expected fresh entry, got %v", err)
	}

	removed, err := c.PurgeExpired(now)
	if err != nil {
		t.Fatalf("PurgeExpired returned error: %v", err)
	}
	if removed != 1 || c.Len() != 1 {
		t.Fatalf("expected 1 removed and 1 left, got removed=%d len=%d", removed, c.Len())
	}
}
