// Package kiosk runs camera frames through check-in one at a time.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/telemetry"
	"github.com/patrickmn/go-cache"
)

var (
	// ErrBusy is returned when a frame arrives while another is being processed.
	ErrBusy = errors.New("recognition already in progress")
	// ErrHold is returned while a station is still showing its previous result.
	ErrHold = errors.New("station is showing a result")
	// ErrNoFace is returned when the frame contains no face.
	ErrNoFace = attendance.ErrNoFace
)

// CheckInService checks in the best face of an image.
type CheckInService interface {
	CheckInImage(ctx context.Context, imageData []byte) (*attendance.CheckInResult, error)
}

// Attempt is one processed frame.
type Attempt struct {
	ID         string                    `json:"id"`
	Station    string                    `json:"station"`
	StartedAt  time.Time                 `json:"started_at"`
	DurationMs int64                     `json:"duration_ms"`
	Result     *attendance.CheckInResult `json:"result,omitempty"`
	Message    string                    `json:"message"`
	Error      string                    `json:"error,omitempty"`
}

// Options configures a Pipeline.
type Options struct {
	// ResultHold is how long a station drops frames after showing a result.
	ResultHold time.Duration
	// MaxFrameSize scales frames down before detection. Zero sends frames unchanged.
	MaxFrameSize int
	Metrics      *metrics.Metrics
	Reporter     *telemetry.Reporter
	Logger       *slog.Logger
}

// Pipeline owns the in-flight guard. At most one frame is processed at a time;
// frames arriving meanwhile are dropped with ErrBusy.
type Pipeline struct {
	service     CheckInService
	busy        atomic.Bool
	hold        time.Duration
	maxFrame    int
	holds       *cache.Cache
	results     *cache.Cache
	broadcaster *Broadcaster
	metrics     *metrics.Metrics
	reporter    *telemetry.Reporter
	logger      *slog.Logger
}

// NewPipeline creates a Pipeline around service.
func NewPipeline(service CheckInService, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// cleanup interval 0: expired holds are ignored by Get and no janitor goroutine is started
	return &Pipeline{
		service:     service,
		hold:        opts.ResultHold,
		maxFrame:    opts.MaxFrameSize,
		holds:       cache.New(opts.ResultHold, 0),
		results:     cache.New(cache.NoExpiration, 0),
		broadcaster: NewBroadcaster(),
		metrics:     opts.Metrics,
		reporter:    opts.Reporter,
		logger:      logger,
	}
}

// Events returns the broadcaster that receives every processed attempt.
func (p *Pipeline) Events() *Broadcaster {
	return p.broadcaster
}

// Busy reports whether a frame is being processed.
func (p *Pipeline) Busy() bool {
	return p.busy.Load()
}

// Held reports whether station is in its result hold.
func (p *Pipeline) Held(station string) bool {
	_, held := p.holds.Get(stationName(station))
	return held
}

// LastAttempt returns the most recent completed attempt of a station.
func (p *Pipeline) LastAttempt(station string) (*Attempt, bool) {
	v, ok := p.results.Get(stationName(station))
	if !ok {
		return nil, false
	}
	return v.(*Attempt), true
}

// Close stops event delivery.
func (p *Pipeline) Close() {
	p.broadcaster.Close()
}

func stationName(station string) string {
	if station == "" {
		return constants.DefaultStation
	}
	return station
}

// Process runs one frame through check-in.
// Frames are dropped with ErrHold during a station's result hold and with ErrBusy while
// another frame is in flight. A frame without a face returns ErrNoFace and starts no hold.
// Other failures are returned as is; those not caused by the frame are reported to telemetry.
func (p *Pipeline) Process(ctx context.Context, station string, frame []byte) (*Attempt, error) {
	station = stationName(station)

	if p.Held(station) {
		p.metrics.RecordFrameDropped(metrics.DropHold)
		return nil, ErrHold
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.metrics.RecordFrameDropped(metrics.DropBusy)
		return nil, ErrBusy
	}
	defer p.busy.Store(false)

	attempt := &Attempt{
		ID:        uuid.NewString(),
		Station:   station,
		StartedAt: time.Now(),
	}

	result, err := p.run(ctx, frame)
	attempt.DurationMs = time.Since(attempt.StartedAt).Milliseconds()

	switch {
	case errors.Is(err, ErrNoFace):
		attempt.Error = err.Error()
		attempt.Message = "No face detected"
		p.publish(EventNoFace, attempt)
		return attempt, err
	case err != nil:
		attempt.Error = err.Error()
		attempt.Message = "Check-in failed"
		if IsClientError(err) {
			p.logger.Warn("frame rejected", "station", station, "attempt_id", attempt.ID, "error", err)
		} else {
			p.logger.Error("check-in failed", "station", station, "attempt_id", attempt.ID, "error", err)
			p.reporter.CaptureError(err, "kiosk", map[string]string{"station": station})
		}
		p.publish(EventError, attempt)
		return attempt, err
	}

	attempt.Result = result
	attempt.Message = result.Message()
	if p.hold > 0 {
		p.holds.Set(station, struct{}{}, p.hold)
	}
	p.results.Set(station, attempt, cache.NoExpiration)
	p.publish(EventCheckIn, attempt)

	p.logger.Debug("frame processed",
		"station", station,
		"attempt_id", attempt.ID,
		"outcome", result.Outcome,
		"duration_ms", attempt.DurationMs,
	)
	return attempt, nil
}

// IsClientError reports whether err was caused by the submitted frame rather than by the service.
func IsClientError(err error) bool {
	return errors.Is(err, faceimage.ErrDecode) || errors.Is(err, attendance.ErrInvalidEmbedding)
}

func (p *Pipeline) run(ctx context.Context, frame []byte) (*attendance.CheckInResult, error) {
	if p.maxFrame > 0 {
		resized, err := faceimage.ResizeFrame(frame, p.maxFrame, constants.FrameJPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("prepare frame: %w", err)
		}
		frame = resized
	}
	return p.service.CheckInImage(ctx, frame)
}

func (p *Pipeline) publish(eventType string, attempt *Attempt) {
	p.broadcaster.SendEvent(Event{
		Type:    eventType,
		Station: attempt.Station,
		Attempt: attempt,
		Message: attempt.Message,
		Time:    time.Now(),
	})
}
