package config_test

import (
	"testing"

	"stockledger/internal/config"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{"DATABASE_URL": "postgres://x"}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreBackend != config.BackendPostgres {
		t.Errorf("StoreBackend = %q, want postgres", cfg.StoreBackend)
	}
	if cfg.ServerPort != "8080" || cfg.SQLitePath != "stockledger.db" || cfg.TrackingWarningDays != 30 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"postgres without url", map[string]string{}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "redis"}},
		{"bad warning days", map[string]string{"STORE_BACKEND": "memory", "TRACKING_WARNING_DAYS": "soon"}},
		{"negative threshold", map[string]string{"STORE_BACKEND": "memory", "LOW_STOCK_THRESHOLD": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.FromEnv(env(tt.vars)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFromEnvSQLite(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{
		"STORE_BACKEND":         " SQLite ",
		"SQLITE_PATH":           "/tmp/x.db",
		"TRACKING_WARNING_DAYS": "14",
		"JWT_SECRET":            "s3cret",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.StoreBackend != config.BackendSQLite || cfg.SQLitePath != "/tmp/x.db" || cfg.TrackingWarningDays != 14 {
		t.Errorf("cfg = %+v", cfg)
	}
}
