package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"gorm.io/gorm"
)

func (s *Store) firstAttendance(ctx context.Context, q *gorm.DB) (*database.AttendanceRecord, error) {
	var m attendanceModel
	err := q.WithContext(ctx).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return m.toRecord(), nil
}

// GetAttendance returns the record with the given ID, or nil.
func (s *Store) GetAttendance(ctx context.Context, id int64) (*database.AttendanceRecord, error) {
	return s.firstAttendance(ctx, s.db.Where("id = ?", id))
}

// LastAttendance returns the most recent record of an identity, or nil.
func (s *Store) LastAttendance(ctx context.Context, identityID int64) (*database.AttendanceRecord, error) {
	return s.firstAttendance(ctx, s.db.Where("identity_id = ?", identityID).Order("ts_ms DESC, id DESC"))
}

// AttendanceBetween returns records in [start, end] joined with identity names, newest first.
func (s *Store) AttendanceBetween(ctx context.Context, start, end int64) ([]database.AttendanceEntry, error) {
	var rows []entryRow
	err := s.db.WithContext(ctx).
		Table("attendance AS a").
		Select("a.id, a.identity_id, a.ts_ms, i.external_key, i.given_name, i.family_name").
		Joins("LEFT JOIN identities i ON i.id = a.identity_id").
		Where("a.ts_ms BETWEEN ? AND ?", start, end).
		Order("a.ts_ms DESC, a.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query attendance range: %w", err)
	}

	out := make([]database.AttendanceEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntry())
	}
	return out, nil
}

// CreateAttendance inserts a record. A missing identity yields database.ErrNotFound.
func (s *Store) CreateAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	m := attendanceModel{IdentityID: record.IdentityID, TsMs: record.Timestamp}
	err := s.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("identity %d: %w", record.IdentityID, database.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	record.ID = m.ID
	return nil
}

// UpdateAttendance replaces identity and timestamp of an existing record.
func (s *Store) UpdateAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	tx := s.db.WithContext(ctx).Model(&attendanceModel{}).Where("id = ?", record.ID).Updates(map[string]any{
		"identity_id": record.IdentityID,
		"ts_ms":       record.Timestamp,
	})
	if errors.Is(tx.Error, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("identity %d: %w", record.IdentityID, database.ErrNotFound)
	}
	if err := requireAffected(tx, "attendance", record.ID); err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return nil
}

// DeleteAttendance removes a record.
func (s *Store) DeleteAttendance(ctx context.Context, id int64) error {
	if err := requireAffected(s.db.WithContext(ctx).Delete(&attendanceModel{}, id), "attendance", id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
