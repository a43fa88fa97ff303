package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"MATCH_METRIC", "MATCH_THRESHOLD", "ATTENDANCE_COOLDOWN_MS", "EMBEDDING_DIM",
		"DATABASE_DRIVER", "KIOSK_RESULT_HOLD", "FACE_JPEG_QUALITY", "ATTENDANCE_TIMEZONE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Matching.Metric != "cosine" {
		t.Errorf("expected default metric cosine, got %q", cfg.Matching.Metric)
	}
	if cfg.Matching.Threshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %v", cfg.Matching.Threshold)
	}
	if cfg.Attendance.CooldownMillis != 300000 {
		t.Errorf("expected 5 minute cooldown, got %d", cfg.Attendance.CooldownMillis)
	}
	if cfg.Embedding.Dim != 128 {
		t.Errorf("expected dim 128, got %d", cfg.Embedding.Dim)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if cfg.Kiosk.ResultHold != 3*time.Second {
		t.Errorf("expected 3s result hold, got %v", cfg.Kiosk.ResultHold)
	}
	if cfg.Storage.JPEGQuality != 90 {
		t.Errorf("expected JPEG quality 90, got %d", cfg.Storage.JPEGQuality)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_MetricDefaultThreshold(t *testing.T) {
	t.Setenv("MATCH_METRIC", "Euclidean")
	t.Setenv("MATCH_THRESHOLD", "")

	cfg := Load()

	if cfg.Matching.Metric != "euclidean" {
		t.Errorf("expected euclidean, got %q", cfg.Matching.Metric)
	}
	if cfg.Matching.Threshold != 1.0 {
		t.Errorf("expected euclidean default threshold 1.0, got %v", cfg.Matching.Threshold)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.45")
	t.Setenv("ATTENDANCE_COOLDOWN_MS", "3000")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://kiosk.example.com, ,https://admin.example.com")
	t.Setenv("KIOSK_RESULT_HOLD", "1500ms")

	cfg := Load()

	if cfg.Matching.Threshold != 0.45 {
		t.Errorf("expected threshold 0.45, got %v", cfg.Matching.Threshold)
	}
	ac := cfg.AttendanceConfig()
	if ac.DistanceThreshold != 0.45 || ac.CooldownMillis != 3000 {
		t.Errorf("unexpected attendance config %+v", ac)
	}
	if ac.Cooldown() != 3*time.Second {
		t.Errorf("expected 3s cooldown, got %v", ac.Cooldown())
	}
	if len(cfg.Web.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Kiosk.ResultHold != 1500*time.Millisecond {
		t.Errorf("expected 1.5s hold, got %v", cfg.Kiosk.ResultHold)
	}
}

func TestEnvHelpers_InvalidFallBack(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_NEG", "-5")
	t.Setenv("TEST_DUR", "soon")
	t.Setenv("TEST_FLOAT", "-0.3")

	if got := envInt("TEST_INT", 7); got != 7 {
		t.Errorf("envInt = %d, want 7", got)
	}
	if got := envInt64("TEST_NEG", 9); got != 9 {
		t.Errorf("envInt64 = %d, want 9", got)
	}
	if got := envDuration("TEST_DUR", time.Second); got != time.Second {
		t.Errorf("envDuration = %v, want 1s", got)
	}
	if got := envFloat("TEST_FLOAT"); got != 0 {
		t.Errorf("envFloat = %v, want 0", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Matching.Metric = "manhattan"
	cfg.Matching.Threshold = 0
	cfg.Embedding.Dim = 0
	cfg.Attendance.Timezone = "Mars/Olympus"
	cfg.Auth.JWTSecret = "secret"
	cfg.Auth.PasswordHash = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"MATCH_METRIC", "MATCH_THRESHOLD", "EMBEDDING_DIM", "Mars/Olympus", "AUTH_PASSWORD_HASH"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestThresholds_Embedded(t *testing.T) {
	th := loadThresholds()
	if th.DefaultThreshold("cosine") != 0.6 {
		t.Errorf("cosine threshold = %v", th.DefaultThreshold("cosine"))
	}
	if th.DefaultThreshold("euclidean") != 1.0 {
		t.Errorf("euclidean threshold = %v", th.DefaultThreshold("euclidean"))
	}
	if th.DefaultThreshold("unknown") != 0 {
		t.Error("unknown metric should have no threshold")
	}
}
