package facematch

import (
	"errors"
	"image"
	"testing"
)

func TestPaddedCrop(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)

	tests := []struct {
		name     string
		bbox     []float64
		expected image.Rectangle
	}{
		{
			name:     "centered face padded on all sides",
			bbox:     []float64{50, 20, 100, 70},
			expected: image.Rect(40, 10, 110, 80),
		},
		{
			name:     "clamped to top-left corner",
			bbox:     []float64{0, 0, 50, 50},
			expected: image.Rect(0, 0, 60, 60),
		},
		{
			name:     "clamped to bottom-right corner",
			bbox:     []float64{160, 60, 200, 100},
			expected: image.Rect(152, 52, 200, 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PaddedCrop(tt.bbox, bounds, 0.2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPaddedCrop_Invalid(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	if _, err := PaddedCrop([]float64{1, 2, 3}, bounds, 0.2); err == nil {
		t.Error("expected error for short bbox")
	}

	_, err := PaddedCrop([]float64{300, 300, 400, 400}, bounds, 0.2)
	if !errors.Is(err, ErrEmptyBBox) {
		t.Errorf("expected ErrEmptyBBox, got %v", err)
	}
}

func TestBBoxArea(t *testing.T) {
	tests := []struct {
		bbox     []float64
		expected float64
	}{
		{[]float64{0, 0, 10, 10}, 100},
		{[]float64{5, 5, 15, 10}, 50},
		{[]float64{10, 10, 0, 0}, 0},
		{[]float64{0, 0}, 0},
		{nil, 0},
	}

	for _, tt := range tests {
		if got := BBoxArea(tt.bbox); got != tt.expected {
			t.Errorf("BBoxArea(%v) = %v, want %v", tt.bbox, got, tt.expected)
		}
	}
}
