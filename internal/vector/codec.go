// Package vector converts face feature vectors to and from their persisted byte form.
package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// BytesPerElement is the size of one float32 in the persisted layout.
const BytesPerElement = 4

// ErrInvalidLength is returned when a byte slice cannot hold a whole number of float32 values.
var ErrInvalidLength = errors.New("vector byte length is not a multiple of 4")

// Encode packs v as big-endian IEEE-754 float32 values in vector order.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*BytesPerElement)
	for i, f := range v {
		binary.BigEndian.PutUint32(buf[i*BytesPerElement:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks bytes produced by Encode.
func Decode(b []byte) ([]float32, error) {
	if len(b)%BytesPerElement != 0 {
		return nil, fmt.Errorf("decode vector of %d bytes: %w", len(b), ErrInvalidLength)
	}
	v := make([]float32, len(b)/BytesPerElement)
	for i := range v {
		v[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*BytesPerElement:]))
	}
	return v, nil
}
