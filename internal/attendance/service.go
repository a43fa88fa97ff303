package attendance

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// FaceEmbedder detects faces in an image and returns one embedding per face.
type FaceEmbedder interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*embedder.FaceResponse, error)
}

// FaceStorage persists enrolled face crops.
type FaceStorage interface {
	Save(externalKey string, img image.Image) (string, error)
	Delete(path string) error
}

// Options configures a Service. Store, Matcher and Policy are required.
type Options struct {
	Store    database.Store
	Matcher  *facematch.Matcher
	Policy   *Policy
	Embedder FaceEmbedder
	Faces    FaceStorage
	// EmbeddingDim is the expected vector length; 0 accepts any length.
	EmbeddingDim int
	// Location is the timezone of daily reports. Defaults to time.Local.
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service implements enrollment, check-in and attendance management on top of a Store.
type Service struct {
	store    database.Store
	matcher  *facematch.Matcher
	policy   *Policy
	embedder FaceEmbedder
	faces    FaceStorage
	dim      int
	loc      *time.Location
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// markMu serializes the last-record lookup and insert of check-ins.
	markMu sync.Mutex
}

// NewService validates opts and returns a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if opts.Policy == nil {
		return nil, errors.New("policy is required")
	}
	s := &Service{
		store:    opts.Store,
		matcher:  opts.Matcher,
		policy:   opts.Policy,
		embedder: opts.Embedder,
		faces:    opts.Faces,
		dim:      opts.EmbeddingDim,
		loc:      opts.Location,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Matcher returns the matcher used for check-ins.
func (s *Service) Matcher() *facematch.Matcher {
	return s.matcher
}

// Policy returns the cooldown policy.
func (s *Service) Policy() *Policy {
	return s.policy
}

// Location returns the timezone of daily reports.
func (s *Service) Location() *time.Location {
	return s.loc
}

// detectBest runs face detection and returns the best face.
func (s *Service) detectBest(ctx context.Context, imageData []byte) (*embedder.FaceDetection, error) {
	if s.embedder == nil {
		return nil, ErrEmbedderUnavailable
	}
	resp, err := s.embedder.ComputeFaceEmbeddings(ctx, imageData)
	if err != nil {
		return nil, err
	}
	best := resp.Best()
	if best == nil {
		return nil, ErrNoFace
	}
	return best, nil
}
