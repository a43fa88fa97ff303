package embedder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}

func TestComputeFaceEmbeddings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		data, _ := io.ReadAll(file)
		if len(data) != len(jpegMagic) {
			t.Errorf("expected %d bytes, got %d", len(jpegMagic), len(data))
		}

		json.NewEncoder(w).Encode(FaceResponse{
			FacesCount: 1,
			Model:      "facenet",
			Faces: []FaceDetection{
				{FaceIndex: 0, Dim: 3, Embedding: []float32{0.1, 0.2, 0.3}, BBox: []float64{1, 2, 3, 4}, DetScore: 0.98},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	resp, err := client.ComputeFaceEmbeddings(context.Background(), jpegMagic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.FacesCount != 1 || len(resp.Faces) != 1 {
		t.Fatalf("expected 1 face, got %+v", resp)
	}
	if resp.Faces[0].Embedding[2] != 0.3 {
		t.Errorf("unexpected embedding %v", resp.Faces[0].Embedding)
	}
}

func TestComputeFaceEmbeddings_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).ComputeFaceEmbeddings(context.Background(), jpegMagic)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestComputeFaceEmbeddings_EmptyImage(t *testing.T) {
	if _, err := NewClient("").ComputeFaceEmbeddings(context.Background(), nil); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if err := NewClient(server.URL).Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFaceResponse_Best(t *testing.T) {
	resp := &FaceResponse{Faces: []FaceDetection{
		{FaceIndex: 0, Embedding: []float32{1}, BBox: []float64{0, 0, 10, 10}, DetScore: 0.7},
		{FaceIndex: 1, Embedding: []float32{1}, BBox: []float64{0, 0, 10, 10}, DetScore: 0.9},
		{FaceIndex: 2, Embedding: []float32{1}, BBox: []float64{0, 0, 20, 20}, DetScore: 0.9},
		{FaceIndex: 3, Embedding: nil, BBox: []float64{0, 0, 50, 50}, DetScore: 0.99},
	}}

	best := resp.Best()
	if best == nil || best.FaceIndex != 2 {
		t.Errorf("expected face 2, got %+v", best)
	}

	if (&FaceResponse{}).Best() != nil {
		t.Error("expected nil for no faces")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", jpegMagic, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"bmp", []byte("BM\x00\x00\x00\x00\x00\x00"), "image/bmp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("hello world"), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMIMEType(tt.data); got != tt.expected {
				t.Errorf("DetectMIMEType = %q, want %q", got, tt.expected)
			}
		})
	}
}
