package database

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an update or delete targets a missing row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an identity with the same external key exists.
	ErrDuplicateKey = errors.New("external key already enrolled")
)

// UnknownName is shown for attendance records whose identity no longer exists.
const UnknownName = "unknown"

// Identity is an enrolled person.
type Identity struct {
	ID            int64     `json:"id"`
	ExternalKey   string    `json:"external_key"`
	GivenName     string    `json:"given_name"`
	FamilyName    string    `json:"family_name"`
	Embedding     []float32 `json:"-"`
	FacePhotoPath string    `json:"face_photo_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AttendanceRecord is one accepted attendance mark.
// Confidence is display-only and is not persisted.
type AttendanceRecord struct {
	ID         int64   `json:"id"`
	IdentityID int64   `json:"identity_id"`
	Timestamp  int64   `json:"timestamp"` // milliseconds since epoch
	Confidence float64 `json:"confidence,omitempty"`
}

// Time returns the record timestamp as a time.Time.
func (r *AttendanceRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// AttendanceEntry is an attendance record joined with the identity it belongs to.
type AttendanceEntry struct {
	AttendanceRecord
	ExternalKey string `json:"external_key"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
}
