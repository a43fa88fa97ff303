package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/kiosk"
)

func TestCheckInHandler_CheckIn_Embedding(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.AddIdentity(database.Identity{ExternalKey: "12345678", GivenName: "Jana", FamilyName: "Nováková", Embedding: []float32{1, 0, 0}})
	handler := NewCheckInHandler(env.svc, env.pipeline, discardLogger())

	recorder := httptest.NewRecorder()
	handler.CheckIn(recorder, jsonRequest(t, "POST", "/api/v1/checkin", map[string]any{"embedding": []float32{1, 0.05, 0}}))

	assertStatusCode(t, recorder, http.StatusOK)
	var result attendance.CheckInResult
	parseJSONResponse(t, recorder, &result)
	if result.Outcome != attendance.OutcomeCheckedIn || result.Identity == nil || result.Identity.ID != id {
		t.Fatalf("unexpected result %+v", result)
	}

	recorder = httptest.NewRecorder()
	handler.CheckIn(recorder, jsonRequest(t, "POST", "/api/v1/checkin", map[string]any{"embedding": []float32{1, 0.05, 0}}))
	parseJSONResponse(t, recorder, &result)
	if result.Outcome != attendance.OutcomeCooldown || result.RetryAfterSeconds != 300 {
		t.Errorf("expected cooldown with 300s retry, got %+v", result)
	}
	if env.store.AttendanceCount() != 1 {
		t.Errorf("expected 1 record, got %d", env.store.AttendanceCount())
	}
}

func TestCheckInHandler_CheckIn_Outcomes(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCheckInHandler(env.svc, env.pipeline, discardLogger())

	recorder := httptest.NewRecorder()
	handler.CheckIn(recorder, jsonRequest(t, "POST", "/api/v1/checkin", map[string]any{"embedding": []float32{1, 0, 0}}))
	var result attendance.CheckInResult
	parseJSONResponse(t, recorder, &result)
	if result.Outcome != attendance.OutcomeNoIdentities {
		t.Errorf("expected no_identities, got %s", result.Outcome)
	}

	env.store.AddIdentity(database.Identity{ExternalKey: "12345678", Embedding: []float32{1, 0, 0}})
	recorder = httptest.NewRecorder()
	handler.CheckIn(recorder, jsonRequest(t, "POST", "/api/v1/checkin", map[string]any{"embedding": []float32{0, 0, 1}}))
	parseJSONResponse(t, recorder, &result)
	if result.Outcome != attendance.OutcomeNotRecognized {
		t.Errorf("expected not_recognized, got %s", result.Outcome)
	}

	recorder = httptest.NewRecorder()
	handler.CheckIn(recorder, jsonRequest(t, "POST", "/api/v1/checkin", map[string]any{"embedding": []float32{1, 0}}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestCheckInHandler_CheckIn_Image(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.Identity{ExternalKey: "12345678", Embedding: []float32{0, 1, 0}})
	env.embedder.setFace([]float32{0, 1, 0})
	handler := NewCheckInHandler(env.svc, env.pipeline, discardLogger())

	req := httptest.NewRequest("POST", "/api/v1/checkin", bytes.NewReader(testPNG(t)))
	req.Header.Set("Content-Type", "image/png")
	recorder := httptest.NewRecorder()
	handler.CheckIn(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result attendance.CheckInResult
	parseJSONResponse(t, recorder, &result)
	if result.Outcome != attendance.OutcomeCheckedIn {
		t.Errorf("expected checked_in, got %s", result.Outcome)
	}
}

func TestCheckInHandler_Frame(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.Identity{ExternalKey: "12345678", GivenName: "Jana", FamilyName: "Nováková", Embedding: []float32{0, 1, 0}})
	handler := NewCheckInHandler(env.svc, env.pipeline, discardLogger())
	frame := testPNG(t)

	// no face: 422 and no hold
	recorder := httptest.NewRecorder()
	handler.Frame(recorder, httptest.NewRequest("POST", "/api/v1/kiosk/frames?station=door", bytes.NewReader(frame)))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	env.embedder.setFace([]float32{0, 1, 0})
	recorder = httptest.NewRecorder()
	handler.Frame(recorder, httptest.NewRequest("POST", "/api/v1/kiosk/frames?station=door", bytes.NewReader(frame)))
	assertStatusCode(t, recorder, http.StatusOK)
	var attempt kiosk.Attempt
	parseJSONResponse(t, recorder, &attempt)
	if attempt.Station != "door" || attempt.Result == nil || attempt.Result.Outcome != attendance.OutcomeCheckedIn {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	// station is holding its result
	recorder = httptest.NewRecorder()
	handler.Frame(recorder, httptest.NewRequest("POST", "/api/v1/kiosk/frames?station=door", bytes.NewReader(frame)))
	assertStatusCode(t, recorder, http.StatusTooManyRequests)

	// another station is not
	req := httptest.NewRequest("POST", "/api/v1/kiosk/frames", bytes.NewReader(frame))
	req.Header.Set("X-Station", "lobby")
	recorder = httptest.NewRecorder()
	handler.Frame(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = httptest.NewRecorder()
	handler.Last(recorder, httptest.NewRequest("GET", "/api/v1/kiosk/last?station=door", nil))
	var status KioskStatusResponse
	parseJSONResponse(t, recorder, &status)
	if !status.Held || status.Busy || status.Last == nil || status.Last.ID != attempt.ID {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestCheckInHandler_Last_DefaultStation(t *testing.T) {
	env := newTestEnv(t)
	handler := NewCheckInHandler(env.svc, env.pipeline, discardLogger())

	recorder := httptest.NewRecorder()
	handler.Last(recorder, httptest.NewRequest("GET", "/api/v1/kiosk/last", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var status KioskStatusResponse
	parseJSONResponse(t, recorder, &status)
	if status.Station != "default" || status.Last != nil {
		t.Errorf("unexpected status %+v", status)
	}
}

// readSSEEvent reads lines until a complete event and returns its type and data.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var eventType, data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read event stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && eventType != "":
			return eventType, data
		}
	}
}

func TestCheckInHandler_Events(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity(database.Identity{ExternalKey: "12345678", Embedding: []float32{0, 1, 0}})
	env.embedder.setFace([]float32{0, 1, 0})
	handler := NewCheckInHandler(env.svc, env.pipeline, discardLogger())

	server := httptest.NewServer(http.HandlerFunc(handler.Events))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", server.URL+"?station=door", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to open event stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}
	reader := bufio.NewReader(resp.Body)
	if eventType, _ := readSSEEvent(t, reader); eventType != "connected" {
		t.Fatalf("expected connected event, got %s", eventType)
	}

	// events of other stations are filtered out
	if _, err := env.pipeline.Process(ctx, "lobby", testPNG(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.pipeline.Process(ctx, "door", testPNG(t)); err != nil {
		t.Fatal(err)
	}

	eventType, data := readSSEEvent(t, reader)
	if eventType != kiosk.EventCheckIn {
		t.Fatalf("expected checkin event, got %s", eventType)
	}
	var event kiosk.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("invalid event data: %v", err)
	}
	if event.Station != "door" || event.Attempt == nil {
		t.Errorf("unexpected event %+v", event)
	}
}
