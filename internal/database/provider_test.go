package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "oracle") {
		t.Errorf("expected error to name the driver, got %v", err)
	}
}

func TestOpen_WrapsBackendError(t *testing.T) {
	boom := errors.New("boom")
	RegisterBackend("failing-test", func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
		return nil, boom
	})

	_, err := Open(context.Background(), &config.DatabaseConfig{Driver: "failing-test"})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}

	found := false
	for _, name := range Backends() {
		if name == "failing-test" {
			found = true
		}
	}
	if !found {
		t.Error("expected registered backend to be listed")
	}
}
