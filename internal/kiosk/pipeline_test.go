package kiosk

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu      sync.Mutex
	result  *attendance.CheckInResult
	err     error
	calls   int
	frames  [][]byte
	started chan struct{}
	release chan struct{}
}

func (f *fakeService) CheckInImage(ctx context.Context, imageData []byte) (*attendance.CheckInResult, error) {
	f.mu.Lock()
	f.calls++
	f.frames = append(f.frames, imageData)
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func checkedIn() *attendance.CheckInResult {
	return &attendance.CheckInResult{
		Outcome:  attendance.OutcomeCheckedIn,
		Identity: &database.Identity{ID: 1, GivenName: "Jana", FamilyName: "Nováková"},
		Record:   &database.AttendanceRecord{ID: 1, IdentityID: 1, Timestamp: 1000},
	}
}

func TestProcess_CheckIn(t *testing.T) {
	svc := &fakeService{result: checkedIn()}
	p := NewPipeline(svc, Options{ResultHold: time.Hour})
	defer p.Close()
	events := p.Events().AddListener()

	attempt, err := p.Process(context.Background(), "gate-1", []byte("frame"))
	require.NoError(t, err)
	assert.NotEmpty(t, attempt.ID)
	assert.Equal(t, "gate-1", attempt.Station)
	assert.Equal(t, "Attendance marked for Jana Nováková", attempt.Message)
	assert.False(t, p.Busy())

	event := <-events
	assert.Equal(t, EventCheckIn, event.Type)
	assert.Equal(t, attempt.ID, event.Attempt.ID)

	last, ok := p.LastAttempt("gate-1")
	require.True(t, ok)
	assert.Equal(t, attempt.ID, last.ID)

	_, ok = p.LastAttempt("gate-2")
	assert.False(t, ok)
}

func TestProcess_HoldDropsFrames(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	svc := &fakeService{result: checkedIn()}
	p := NewPipeline(svc, Options{ResultHold: 50 * time.Millisecond, Metrics: m})
	defer p.Close()

	_, err = p.Process(context.Background(), "gate-1", []byte("frame"))
	require.NoError(t, err)
	assert.True(t, p.Held("gate-1"))

	_, err = p.Process(context.Background(), "gate-1", []byte("frame"))
	assert.ErrorIs(t, err, ErrHold)

	// other stations are not held
	_, err = p.Process(context.Background(), "gate-2", []byte("frame"))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool { return !p.Held("gate-1") }, time.Second, 10*time.Millisecond)
	_, err = p.Process(context.Background(), "gate-1", []byte("frame"))
	assert.NoError(t, err)
	assert.Equal(t, 3, svc.Calls())
}

func TestProcess_BusyGuard(t *testing.T) {
	svc := &fakeService{
		result:  checkedIn(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	p := NewPipeline(svc, Options{})
	defer p.Close()

	done := make(chan error, 1)
	go func() {
		_, err := p.Process(context.Background(), "gate-1", []byte("first"))
		done <- err
	}()
	<-svc.started
	assert.True(t, p.Busy())

	_, err := p.Process(context.Background(), "gate-2", []byte("second"))
	assert.ErrorIs(t, err, ErrBusy)

	close(svc.release)
	require.NoError(t, <-done)
	assert.False(t, p.Busy())
	assert.Equal(t, 1, svc.Calls())

	svc.mu.Lock()
	svc.started = nil
	svc.mu.Unlock()
	_, err = p.Process(context.Background(), "gate-2", []byte("third"))
	assert.NoError(t, err)
}

func TestProcess_ConcurrentFramesOneInFlight(t *testing.T) {
	svc := &fakeService{result: checkedIn(), release: make(chan struct{})}
	p := NewPipeline(svc, Options{})
	defer p.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	busy := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Process(context.Background(), "gate-1", []byte("frame"))
			if errors.Is(err, ErrBusy) {
				mu.Lock()
				busy++
				mu.Unlock()
			}
		}()
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return busy == 19
	}, 2*time.Second, 5*time.Millisecond)
	close(svc.release)
	wg.Wait()
	assert.Equal(t, 1, svc.Calls())
}

func TestProcess_NoFace(t *testing.T) {
	svc := &fakeService{err: attendance.ErrNoFace}
	p := NewPipeline(svc, Options{ResultHold: time.Hour})
	defer p.Close()
	events := p.Events().AddListener()

	attempt, err := p.Process(context.Background(), "", []byte("frame"))
	assert.ErrorIs(t, err, ErrNoFace)
	require.NotNil(t, attempt)
	assert.Equal(t, "default", attempt.Station)
	assert.False(t, p.Held("default"), "no-face frames must not start a hold")
	assert.Equal(t, EventNoFace, (<-events).Type)

	_, ok := p.LastAttempt("")
	assert.False(t, ok)
}

func TestProcess_Failure(t *testing.T) {
	svc := &fakeService{err: errors.New("database unavailable")}
	p := NewPipeline(svc, Options{ResultHold: time.Hour})
	defer p.Close()
	events := p.Events().AddListener()

	attempt, err := p.Process(context.Background(), "gate-1", []byte("frame"))
	assert.ErrorContains(t, err, "database unavailable")
	assert.Equal(t, "database unavailable", attempt.Error)
	assert.Equal(t, EventError, (<-events).Type)
	assert.False(t, p.Held("gate-1"))
	assert.False(t, p.Busy())
}

func TestProcess_ResizesFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 400, 200))))

	svc := &fakeService{result: checkedIn()}
	p := NewPipeline(svc, Options{MaxFrameSize: 100})
	defer p.Close()

	_, err := p.Process(context.Background(), "gate-1", buf.Bytes())
	require.NoError(t, err)

	img, err := faceimage.Decode(svc.frames[0])
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())

	_, err = p.Process(context.Background(), "gate-1", []byte("garbage"))
	assert.ErrorIs(t, err, faceimage.ErrDecode)
	assert.True(t, IsClientError(err))
}
