package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	t.Run("creates and registers all metrics", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		if metrics == nil {
			t.Fatal("NewMetrics returned nil")
		}

		if metrics.HTTPRequestsTotal == nil {
			t.Error("HTTPRequestsTotal is nil")
		}
		if metrics.HTTPRequestDuration == nil {
			t.Error("HTTPRequestDuration is nil")
		}
		if metrics.StorageOperationsTotal == nil {
			t.Error("StorageOperationsTotal is nil")
		}
		if metrics.StorageErrorsTotal == nil {
			t.Error("StorageErrorsTotal is nil")
		}
		if metrics.AuthzChecksTotal == nil {
			t.Error("AuthzChecksTotal is nil")
		}
		if metrics.AuthzCheckDuration == nil {
			t.Error("AuthzCheckDuration is nil")
		}
		if metrics.CacheHitsTotal == nil {
			t.Error("CacheHitsTotal is nil")
		}
		if metrics.CacheMissesTotal == nil {
			t.Error("CacheMissesTotal is nil")
		}
		if metrics.DBConnectionsActive == nil {
			t.Error("DBConnectionsActive is nil")
		}
		if metrics.WorkspacesTotal == nil {
			t.Error("WorkspacesTotal is nil")
		}
		if metrics.InviteJoinsTotal == nil {
			t.Error("InviteJoinsTotal is nil")
		}
	})

	t.Run("metrics are registered with registry", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := NewMetrics(registry)

		// Initialize some metrics to make them appear in Gather()
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/test", "200").Add(0)
		metrics.StorageOperationsTotal.WithLabelValues("create", "membership", "success").Add(0)
		metrics.AuthzChecksTotal.WithLabelValues("admin", "allowed").Add(0)
		metrics.CacheHitsTotal.WithLabelValues("lru").Add(0)
		metrics.DBConnectionsActive.Set(0)
		metrics.WorkspacesTotal.Set(0)
		metrics.InviteJoinsTotal.WithLabelValues("joined").Add(0)

		families, err := registry.Gather()
		if err != nil {
			t.Fatalf("Failed to gather metrics: %v", err)
		}

		metricNames := make(map[string]bool)
		for _, family := range families {
			metricNames[family.GetName()] = true
		}

		expected := []string{
			"planora_http_requests_total",
			"planora_storage_operations_total",
			"planora_authz_checks_total",
			"planora_cache_hits_total",
			"planora_db_connections_active",
			"planora_workspaces_total",
			"planora_invite_joins_total",
		}
		for _, name := range expected {
			if !metricNames[name] {
				t.Errorf("metric %s not registered", name)
			}
		}
	})
}

func TestAuthzMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.AuthzChecksTotal.WithLabelValues("admin", "allowed").Inc()
	metrics.AuthzChecksTotal.WithLabelValues("admin", "forbidden").Inc()
	metrics.AuthzChecksTotal.WithLabelValues("member", "unauthorized").Inc()

	expected := `
# HELP planora_authz_checks_total Total number of authorization guard checks
# TYPE planora_authz_checks_total counter
planora_authz_checks_total{minimum_role="admin",outcome="allowed"} 1
planora_authz_checks_total{minimum_role="admin",outcome="forbidden"} 1
planora_authz_checks_total{minimum_role="member",outcome="unauthorized"} 1
`
	if err := testutil.CollectAndCompare(metrics.AuthzChecksTotal, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric output: %v", err)
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/workspaces", strings.NewReader("body"))
	req.ContentLength = 4
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rec.Code)
	}

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/workspaces", "418"))
	if count != 1 {
		t.Errorf("expected 1 request counted, got %v", count)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.WorkspacesTotal.Set(3)

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "planora_workspaces_total 3") {
		t.Errorf("metrics output missing workspace gauge: %s", body)
	}
}
