package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dotproduct/internal/config"
	"dotproduct/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                "8081",
		APIBaseURL:          "http://127.0.0.1:8000/api",
		APITimeout:          time.Second,
		SessionCookieName:   "sessionid",
		CSRFCookieName:      "csrftoken2",
		SessionMaxAge:       time.Hour,
		ControllerCacheSize: 10,
		ControllerIdleTTL:   time.Minute,
		ActivityBackend:     "sqlite",
		SQLiteDBPath:        filepath.Join(t.TempDir(), "activity.db"),
		RateLimitPerMinute:  60,
	}
}

func TestRun_ListenFailureReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Port = "-1"

	err := run(cfg, log.Discard())
	if err == nil {
		t.Fatal("expected listen error")
	}
	if !strings.Contains(err.Error(), "listen on port -1") {
		t.Errorf("error = %v", err)
	}
}

func TestRun_InvalidActivityBackendReturnsError(t *testing.T) {
	cfg := testConfig(t)
	cfg.ActivityBackend = "kafka"

	err := run(cfg, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "activity log") {
		t.Fatalf("error = %v, want activity log failure", err)
	}
}
