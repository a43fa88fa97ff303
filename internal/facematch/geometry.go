package facematch

import (
	"errors"
	"image"
	"math"
)

// ErrEmptyBBox is returned when a bounding box has no area inside the image.
var ErrEmptyBBox = errors.New("face bounding box is empty")

// PaddedCrop expands a pixel bbox [x1, y1, x2, y2] by padRatio of the box width
// on every side and clamps the result to bounds.
func PaddedCrop(bbox []float64, bounds image.Rectangle, padRatio float64) (image.Rectangle, error) {
	if len(bbox) != 4 {
		return image.Rectangle{}, errors.New("bounding box must have 4 coordinates")
	}

	pad := (bbox[2] - bbox[0]) * padRatio
	rect := image.Rect(
		int(math.Floor(bbox[0]-pad)),
		int(math.Floor(bbox[1]-pad)),
		int(math.Ceil(bbox[2]+pad)),
		int(math.Ceil(bbox[3]+pad)),
	).Intersect(bounds)

	if rect.Empty() {
		return image.Rectangle{}, ErrEmptyBBox
	}
	return rect, nil
}

// BBoxArea returns the area of a pixel bbox [x1, y1, x2, y2], or 0 if malformed.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 || bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return 0
	}
	return (bbox[2] - bbox[0]) * (bbox[3] - bbox[1])
}
