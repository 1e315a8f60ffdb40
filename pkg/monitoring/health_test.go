package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

type pingableClient struct{ err error }

func (p *pingableClient) Ping(context.Context) error { return p.err }

func TestHealthChecker_Basic(t *testing.T) {
	hc := NewHealthChecker("svc", "v1")
	hc.AddCheck("ok", func() CheckResult { return CheckResult{Status: StatusHealthy} })
	status := hc.CheckHealth()
	if status.Status != StatusHealthy {
		t.Fatalf("expected healthy")
	}
}

func TestHealthChecker_Aggregation(t *testing.T) {
	hc := NewHealthChecker("svc", "v1")
	hc.AddCheck("ok", func() CheckResult { return CheckResult{Status: StatusHealthy} })
	hc.AddCheck("cache", PingHealthCheck("redis", &pingableClient{err: errors.New("down")}, true))
	if got := hc.CheckHealth().Status; got != StatusDegraded {
		t.Fatalf("expected degraded, got %s", got)
	}

	hc.AddCheck("db", func() CheckResult { return CheckResult{Status: StatusUnhealthy} })
	if got := hc.CheckHealth().Status; got != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", got)
	}
	if names := hc.CheckNames(); len(names) != 3 || names[0] != "cache" {
		t.Fatalf("unexpected check names: %v", names)
	}
}

func TestHealthHandlerStatusCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := NewHealthChecker("svc", "v1")
	hc.AddCheck("db", func() CheckResult { return CheckResult{Status: StatusUnhealthy} })

	r := gin.New()
	r.GET("/health", hc.Handler())
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestPingHealthCheck(t *testing.T) {
	if res := PingHealthCheck("kafka", &pingableClient{}, false)(); res.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %q", res.Status)
	}
	if res := PingHealthCheck("kafka", &pingableClient{err: errors.New("x")}, false)(); res.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %q", res.Status)
	}
	if res := PingHealthCheck("redis", nil, true)(); res.Status != StatusDegraded {
		t.Fatalf("expected degraded for nil optional client, got %q", res.Status)
	}
}

func TestDatabaseHealthCheck(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	if res := DatabaseHealthCheck(db)(); res.Status != StatusHealthy {
		t.Fatalf("expected healthy, got %q (%s)", res.Status, res.Message)
	}

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	if res := DatabaseHealthCheck(db)(); res.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %q", res.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConfigurationHealthCheck(t *testing.T) {
	res := ConfigurationHealthCheck(map[string]string{"JWT_SECRET": "", "DATABASE_URL": "postgres://"})()
	if res.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy when config missing")
	}
}
