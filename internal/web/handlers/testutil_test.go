package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/kiosk"
)

const testCooldown = int64(5 * 60 * 1000)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Embedding:  config.EmbeddingConfig{Dim: 3},
		Matching:   config.MatchingConfig{Metric: "cosine", Threshold: 0.6},
		Attendance: config.AttendancePolicyConfig{CooldownMillis: testCooldown, Timezone: "UTC"},
		Kiosk:      config.KioskConfig{ResultHold: 3 * time.Second},
		Storage:    config.StorageConfig{JPEGQuality: 90},
		Auth:       config.AuthConfig{Username: "admin", TokenTTL: time.Hour},
	}
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEmbedder returns a fixed detection result.
type fakeEmbedder struct {
	mu      sync.Mutex
	resp    *embedder.FaceResponse
	err     error
	pingErr error
}

func (f *fakeEmbedder) ComputeFaceEmbeddings(_ context.Context, _ []byte) (*embedder.FaceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeEmbedder) Ping(_ context.Context) error {
	return f.pingErr
}

func (f *fakeEmbedder) setFace(embedding []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp = &embedder.FaceResponse{
		FacesCount: 1,
		Faces:      []embedder.FaceDetection{{Embedding: embedding, BBox: []float64{10, 10, 60, 60}, DetScore: 0.9, Dim: len(embedding)}},
	}
	f.err = nil
}

// testEnv wires a service over the mock store for handler tests
type testEnv struct {
	svc      *attendance.Service
	store    *mock.MockStore
	embedder *fakeEmbedder
	faces    *faceimage.Store
	pipeline *kiosk.Pipeline
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewMockStore()
	matcher, err := facematch.NewMatcher(facematch.MatcherConfig{Metric: facematch.MetricCosine, Threshold: 0.6})
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	faces, err := faceimage.NewStore(t.TempDir(), 90)
	if err != nil {
		t.Fatalf("failed to create face store: %v", err)
	}
	emb := &fakeEmbedder{resp: &embedder.FaceResponse{}}
	env := &testEnv{
		store:    store,
		embedder: emb,
		faces:    faces,
		now:      time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	}

	svc, err := attendance.NewService(attendance.Options{
		Store:        store,
		Matcher:      matcher,
		Policy:       attendance.NewPolicy(testCooldown),
		Embedder:     emb,
		Faces:        faces,
		EmbeddingDim: 3,
		Location:     time.UTC,
		Logger:       discardLogger(),
		Now:          func() time.Time { return env.now },
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	env.svc = svc
	env.pipeline = kiosk.NewPipeline(svc, kiosk.Options{ResultHold: time.Hour, Logger: discardLogger()})
	t.Cleanup(env.pipeline.Close)
	return env
}

// testPNG returns a small encoded PNG image
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := range 100 {
		for x := range 100 {
			img.Set(x, y, color.NRGBA{R: uint8(x * 2), G: uint8(y * 2), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
