package gormstore

import (
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vector"
)

// identityModel keeps the embedding as a packed float32 BLOB.
type identityModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	ExternalKey   string `gorm:"size:64;not null;uniqueIndex"`
	GivenName     string `gorm:"size:255;not null"`
	FamilyName    string `gorm:"size:255;not null"`
	Embedding     []byte `gorm:"not null"`
	FacePhotoPath string `gorm:"size:1024"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (identityModel) TableName() string { return "identities" }

type attendanceModel struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	IdentityID int64          `gorm:"not null;index:idx_attendance_identity_ts,priority:1"`
	TsMs       int64          `gorm:"column:ts_ms;not null;index:idx_attendance_identity_ts,priority:2;index:idx_attendance_ts"`
	Identity   *identityModel `gorm:"foreignKey:IdentityID;constraint:OnDelete:CASCADE"`
}

func (attendanceModel) TableName() string { return "attendance" }

// entryRow is the scan target of the attendance/identity join.
type entryRow struct {
	ID          int64
	IdentityID  int64
	TsMs        int64
	ExternalKey *string
	GivenName   *string
	FamilyName  *string
}

func newIdentityModel(i *database.Identity) identityModel {
	return identityModel{
		ExternalKey:   i.ExternalKey,
		GivenName:     i.GivenName,
		FamilyName:    i.FamilyName,
		Embedding:     vector.Encode(i.Embedding),
		FacePhotoPath: i.FacePhotoPath,
	}
}

// identity converts everything except the embedding.
func (m *identityModel) identity() database.Identity {
	return database.Identity{
		ID:            m.ID,
		ExternalKey:   m.ExternalKey,
		GivenName:     m.GivenName,
		FamilyName:    m.FamilyName,
		FacePhotoPath: m.FacePhotoPath,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (m *identityModel) toIdentity() (*database.Identity, error) {
	emb, err := vector.Decode(m.Embedding)
	if err != nil {
		return nil, fmt.Errorf("identity %d: %w", m.ID, err)
	}
	i := m.identity()
	i.Embedding = emb
	return &i, nil
}

func (m *attendanceModel) toRecord() *database.AttendanceRecord {
	return &database.AttendanceRecord{ID: m.ID, IdentityID: m.IdentityID, Timestamp: m.TsMs}
}

func (r *entryRow) toEntry() database.AttendanceEntry {
	e := database.AttendanceEntry{
		AttendanceRecord: database.AttendanceRecord{ID: r.ID, IdentityID: r.IdentityID, Timestamp: r.TsMs},
	}
	if r.ExternalKey == nil {
		e.GivenName = database.UnknownName
		return e
	}
	e.ExternalKey = *r.ExternalKey
	if r.GivenName != nil {
		e.GivenName = *r.GivenName
	}
	if r.FamilyName != nil {
		e.FamilyName = *r.FamilyName
	}
	return e
}
