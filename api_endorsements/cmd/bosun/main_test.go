package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/endorse"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/handlers"
	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/store"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/monitoring"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/testutil"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/version"
)

func TestLoadServiceConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := loadServiceConfig()
	if err != nil {
		t.Fatalf("loadServiceConfig: %v", err)
	}
	if cfg.Port != "18040" {
		t.Errorf("Port = %q, want 18040", cfg.Port)
	}
	if cfg.CooldownWindow != 12*time.Hour || cfg.PinDuration != 12*time.Hour {
		t.Errorf("window/pin = %v/%v, want 12h/12h", cfg.CooldownWindow, cfg.PinDuration)
	}
	if cfg.TokenBucketWidth != 5*time.Minute {
		t.Errorf("TokenBucketWidth = %v, want 5m", cfg.TokenBucketWidth)
	}
	if cfg.RequestTolerance != 30*time.Second {
		t.Errorf("RequestTolerance = %v, want 30s", cfg.RequestTolerance)
	}
	if cfg.KafkaTopic != "directory_endorsements" {
		t.Errorf("KafkaTopic = %q", cfg.KafkaTopic)
	}
}

func TestLoadServiceConfigOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("COOLDOWN_WINDOW", "1h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := loadServiceConfig()
	if err != nil {
		t.Fatalf("loadServiceConfig: %v", err)
	}
	if cfg.CooldownWindow != time.Hour {
		t.Errorf("CooldownWindow = %v, want 1h", cfg.CooldownWindow)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestLoadServiceConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "postgres without url",
			env:     map[string]string{"STORE_BACKEND": "postgres", "JWT_SECRET": "s", "DATABASE_URL": ""},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"STORE_BACKEND": "sqlite", "JWT_SECRET": "s"},
			wantErr: "STORE_BACKEND",
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"STORE_BACKEND": "memory", "JWT_SECRET": ""},
			wantErr: "JWT_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadServiceConfig()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(logging.NewDiscardLogger())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out.String()) != version.String() {
		t.Errorf("output = %q, want %q", out.String(), version.String())
	}
}

func TestMigrateListCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(logging.NewDiscardLogger())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--list"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("migrate --list: %v", err)
	}
	if !strings.Contains(out.String(), "000001_init.up.sql") {
		t.Errorf("output = %q, want the init migration", out.String())
	}
}

func TestSweepCommandMemory(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "secret")

	var out bytes.Buffer
	cmd := newRootCmd(logging.NewDiscardLogger())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sweep"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out.String(), "cleared 0 expired pins") {
		t.Errorf("output = %q", out.String())
	}
}

func newRouteHarness(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := serviceConfig{JWTSecret: "route-secret", ServiceToken: "svc-token"}
	logger := logging.NewDiscardLogger()
	st := store.NewMemory()
	metrics := handlers.NewEndorsementMetrics(monitoring.NewMetricsCollector("bosun_test", "test", "test"))
	service := endorse.NewService(endorse.Config{Store: st, Logger: logger, Metrics: metrics})

	router := gin.New()
	registerRoutes(router, cfg, service, st, logger, metrics)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesEndToEnd(t *testing.T) {
	router := newRouteHarness(t)
	itemPath := "/items/community/" + testutil.CommunityItemID

	w := do(t, router, http.MethodPut, "/internal"+itemPath, "", `{"name":"Lounge","ownerId":"`+testutil.OwnerUser.UserID+`"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("sync without service token: status %d, want 401", w.Code)
	}

	w = do(t, router, http.MethodPut, "/internal"+itemPath, "svc-token", `{"name":"Lounge","ownerId":"`+testutil.OwnerUser.UserID+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("sync: status %d body %s", w.Code, w.Body.String())
	}

	session, err := testutil.NewJWTTestHelperWithSecret([]byte("route-secret")).GenerateValidJWT(testutil.VisitorUser)
	if err != nil {
		t.Fatalf("jwt: %v", err)
	}

	w = do(t, router, http.MethodPost, "/api/v1"+itemPath+"/endorse", session, "")
	if w.Code != http.StatusOK {
		t.Fatalf("endorse: status %d body %s", w.Code, w.Body.String())
	}
	var res endorse.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Counter == nil || *res.Counter != 1 {
		t.Fatalf("endorse result = %+v, want counter 1", res)
	}

	w = do(t, router, http.MethodPost, "/api/v1"+itemPath+"/endorse", session, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second endorse: status %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After on cooldown")
	}
}

func TestItemSyncRefreshesStatus(t *testing.T) {
	router := newRouteHarness(t)
	itemPath := "/items/community/" + testutil.CommunityItemID
	owner := testutil.OwnerUser.UserID

	for _, name := range []string{"Before", "After"} {
		w := do(t, router, http.MethodPut, "/internal"+itemPath, "svc-token", `{"name":"`+name+`","ownerId":"`+owner+`"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("sync %s: status %d", name, w.Code)
		}

		w = do(t, router, http.MethodGet, "/api/v1"+itemPath+"/status", "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status: %d body %s", w.Code, w.Body.String())
		}
		var st endorse.StatusResult
		if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if st.Name != name {
			t.Errorf("status name = %q, want %q", st.Name, name)
		}
	}
}
