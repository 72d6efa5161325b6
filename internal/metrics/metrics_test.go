package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryIsolated(t *testing.T) {
	// Two registries must not collide on metric names.
	a := NewRegistry()
	b := NewRegistry()

	a.RegistrationsTotal.WithLabelValues("ok").Inc()

	if got := testutil.ToFloat64(a.RegistrationsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("registry a registrations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.RegistrationsTotal.WithLabelValues("ok")); got != 0 {
		t.Errorf("registry b registrations = %v, want 0", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	reg.Services.Set(3)
	reg.ServicesFresh.Set(2)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"beacon_services 3", "beacon_services_fresh 2"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestGathererIncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	reg.CacheHitsTotal.Inc()

	n, err := testutil.GatherAndCount(reg.Gatherer(), "beacon_cache_hits_total", "go_goroutines")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("GatherAndCount() = %d, want 2", n)
	}
}
