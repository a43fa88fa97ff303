package vector

import (
	"errors"
	"math"
	"testing"
)

func TestEncode_Layout(t *testing.T) {
	got := Encode([]float32{1.0, -2.5})
	want := []byte{0x3f, 0x80, 0x00, 0x00, 0xc0, 0x20, 0x00, 0x00}

	if len(got) != len(want) {
		t.Fatalf("expected %d bytes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: expected %#x, got %#x", i, want[i], got[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
	}{
		{"empty", []float32{}},
		{"all zero", make([]float32, 128)},
		{"mixed", []float32{0.1, -0.2, 3.5, 1e-30, -1e30}},
		{"extremes", []float32{math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32}},
		{"negative zero", []float32{float32(math.Copysign(0, -1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.input)
			if len(encoded) != len(tt.input)*BytesPerElement {
				t.Fatalf("expected %d bytes, got %d", len(tt.input)*BytesPerElement, len(encoded))
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(decoded) != len(tt.input) {
				t.Fatalf("expected %d elements, got %d", len(tt.input), len(decoded))
			}
			for i := range tt.input {
				if math.Float32bits(decoded[i]) != math.Float32bits(tt.input[i]) {
					t.Errorf("element %d: expected %v, got %v", i, tt.input[i], decoded[i])
				}
			}
		})
	}
}

func TestDecode_InvalidLength(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 127} {
		_, err := Decode(make([]byte, n))
		if !errors.Is(err, ErrInvalidLength) {
			t.Errorf("len %d: expected ErrInvalidLength, got %v", n, err)
		}
	}
}
