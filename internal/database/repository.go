package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled identities.
type IdentityReader interface {
	// GetIdentity returns the identity with the given ID, or nil if it does not exist.
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// GetIdentityByKey returns the identity with the given external key, or nil.
	GetIdentityByKey(ctx context.Context, externalKey string) (*Identity, error)
	// ListIdentities returns every identity with its embedding, ordered by ID.
	// Each call returns a fresh snapshot.
	ListIdentities(ctx context.Context) ([]Identity, error)
	// CountIdentities returns the number of enrolled identities.
	CountIdentities(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to enrolled identities.
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity inserts the identity and sets its ID and timestamps.
	// Returns ErrDuplicateKey if the external key is taken.
	CreateIdentity(ctx context.Context, identity *Identity) error
	// UpdateIdentityNames changes the name fields only.
	UpdateIdentityNames(ctx context.Context, id int64, givenName, familyName string) error
	// DeleteIdentity removes the identity and its attendance records.
	DeleteIdentity(ctx context.Context, id int64) error
}

// AttendanceReader provides read-only access to attendance records.
type AttendanceReader interface {
	// GetAttendance returns the record with the given ID, or nil.
	GetAttendance(ctx context.Context, id int64) (*AttendanceRecord, error)
	// LastAttendance returns the most recent record for an identity, or nil.
	LastAttendance(ctx context.Context, identityID int64) (*AttendanceRecord, error)
	// AttendanceBetween returns records with start <= timestamp <= end, newest first,
	// joined with identity names. Records of deleted identities use UnknownName.
	AttendanceBetween(ctx context.Context, start, end int64) ([]AttendanceEntry, error)
}

// AttendanceWriter provides write access to attendance records.
type AttendanceWriter interface {
	AttendanceReader

	// CreateAttendance inserts the record and sets its ID.
	CreateAttendance(ctx context.Context, record *AttendanceRecord) error
	// UpdateAttendance replaces the identity and timestamp of an existing record.
	UpdateAttendance(ctx context.Context, record *AttendanceRecord) error
	// DeleteAttendance removes a record.
	DeleteAttendance(ctx context.Context, id int64) error
}

// Store combines every repository a backend provides.
type Store interface {
	IdentityWriter
	AttendanceWriter
	Close() error
}
