// Package telemetry reports unexpected failures to Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/kozaktomas/face-attendance/internal/config"
)

// Reporter sends errors to Sentry. A zero or nil Reporter discards everything.
type Reporter struct {
	hub *sentry.Hub
}

// New creates a Reporter from configuration. An empty DSN returns a disabled Reporter.
func New(cfg config.TelemetryConfig, version string) (*Reporter, error) {
	if cfg.SentryDSN == "" {
		return &Reporter{}, nil
	}
	return NewWithOptions(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "face-attendance@" + version,
		SampleRate:       1.0,
		AttachStacktrace: true,
	})
}

// NewWithOptions creates a Reporter with its own hub.
func NewWithOptions(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Enabled reports whether errors are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureError reports err tagged with the component that produced it.
func (r *Reporter) CaptureError(err error, component string, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		scope.SetFingerprint([]string{component, fmt.Sprintf("%T", err)})
		r.hub.CaptureException(err)
	})
}

// Flush waits for queued events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
