// Package faceimage decodes camera frames, crops enrolled faces and stores them on disk.
package faceimage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned for data that is not a supported image.
var ErrDecode = errors.New("failed to decode image")

const (
	// CropPadding is the margin added around a detected face, relative to its width.
	CropPadding = 0.2
	// MaxFaceSize bounds the longest side of a stored face crop.
	MaxFaceSize = 512
)

// Decode decodes a JPEG, PNG, BMP or WebP image, applying EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// ResizeFrame re-encodes a frame as JPEG so its longest side is at most maxSize.
// Frames already within bounds are re-encoded unscaled so the embedding service sees one format.
func ResizeFrame(data []byte, maxSize, quality int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxSize || height > maxSize {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// CropFace cuts the face at bbox [x1, y1, x2, y2] out of img with CropPadding on every side.
func CropFace(img image.Image, bbox []float64) (image.Image, error) {
	rect, err := facematch.PaddedCrop(bbox, img.Bounds(), CropPadding)
	if err != nil {
		return nil, err
	}
	face := imaging.Crop(img, rect)
	if face.Bounds().Dx() > MaxFaceSize || face.Bounds().Dy() > MaxFaceSize {
		face = imaging.Fit(face, MaxFaceSize, MaxFaceSize, imaging.Lanczos)
	}
	return face, nil
}
