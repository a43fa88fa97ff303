package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	_ "github.com/kozaktomas/face-attendance/internal/database/gormstore"
	_ "github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/spf13/cobra"
)

// app holds the services shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    database.Store
	faces    *faceimage.Store
	embedder *embedder.Client
	service  *attendance.Service
}

// newLogger builds the logger from configuration and the persistent log flags.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	level, format := cfg.Log.Level, cfg.Log.Format
	if v := mustGetString(cmd, "log-level"); v != "" {
		level = v
	}
	if v := mustGetString(cmd, "log-format"); v != "" {
		format = v
	}
	logger := logging.New(os.Stderr, level, format)
	slog.SetDefault(logger)
	return logger
}

// newApp loads configuration, opens the store and wires the attendance service.
// m may be nil.
func newApp(ctx context.Context, cmd *cobra.Command, m *metrics.Metrics) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cmd, cfg)

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	metric, err := facematch.ParseMetric(cfg.Matching.Metric)
	if err != nil {
		return nil, err
	}
	matcher, err := facematch.NewMatcher(facematch.MatcherConfig{Metric: metric, Threshold: cfg.Matching.Threshold})
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, err
	}
	faces, err := faceimage.NewStore(cfg.Storage.FaceDir, cfg.Storage.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("face storage: %w", err)
	}

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: store, faces: faces}
	opts := attendance.Options{
		Store:        store,
		Matcher:      matcher,
		Policy:       attendance.NewPolicy(cfg.Attendance.CooldownMillis),
		Faces:        faces,
		EmbeddingDim: cfg.Embedding.Dim,
		Location:     loc,
		Logger:       logging.Module(logger, "attendance"),
		Metrics:      m,
	}
	if cfg.Embedding.URL != "" {
		a.embedder = embedder.NewClient(cfg.Embedding.URL)
		opts.Embedder = a.embedder
	} else {
		logger.Warn("EMBEDDING_URL is not set, image enrollment and check-in are disabled")
	}

	a.service, err = attendance.NewService(opts)
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Debug("attendance service ready",
		"matcher", matcher.String(),
		"cooldown_ms", cfg.Attendance.CooldownMillis,
		"timezone", loc.String(),
	)
	return a, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}
