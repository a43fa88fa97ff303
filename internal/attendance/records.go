package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// DayReport lists the attendance of one local calendar day.
type DayReport struct {
	Date    string                     `json:"date"` // YYYY-MM-DD in the report timezone
	Start   int64                      `json:"start"`
	End     int64                      `json:"end"`
	Count   int                        `json:"count"`
	People  int                        `json:"people"` // distinct identities
	Entries []database.AttendanceEntry `json:"entries"`
}

// DayBounds returns the first and last millisecond of day's calendar date in loc.
func DayBounds(day time.Time, loc *time.Location) (start, end int64) {
	d := day.In(loc)
	first := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	next := first.AddDate(0, 0, 1)
	return first.UnixMilli(), next.UnixMilli() - 1
}

// Records returns the attendance between start and end inclusive, newest first.
func (s *Service) Records(ctx context.Context, start, end int64) ([]database.AttendanceEntry, error) {
	if end < start {
		return nil, &ValidationError{Fields: map[string]string{"end": "gtefield"}}
	}
	entries, err := s.store.AttendanceBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return entries, nil
}

// DayReport returns the attendance of the calendar day containing day, in the service timezone.
func (s *Service) DayReport(ctx context.Context, day time.Time) (*DayReport, error) {
	start, end := DayBounds(day, s.loc)
	entries, err := s.Records(ctx, start, end)
	if err != nil {
		return nil, err
	}
	people := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		people[e.IdentityID] = struct{}{}
	}
	return &DayReport{
		Date:    day.In(s.loc).Format(time.DateOnly),
		Start:   start,
		End:     end,
		Count:   len(entries),
		People:  len(people),
		Entries: entries,
	}, nil
}

// LastRecord returns the most recent record of an identity, or nil.
func (s *Service) LastRecord(ctx context.Context, identityID int64) (*database.AttendanceRecord, error) {
	record, err := s.store.LastAttendance(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("get last attendance: %w", err)
	}
	return record, nil
}

// UpdateRecordTime replaces the timestamp of a record.
func (s *Service) UpdateRecordTime(ctx context.Context, id, timestamp int64) (*database.AttendanceRecord, error) {
	if timestamp <= 0 {
		return nil, &ValidationError{Fields: map[string]string{"timestamp": "gt"}}
	}
	record, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	if record == nil {
		return nil, database.ErrNotFound
	}
	record.Timestamp = timestamp
	if err := s.store.UpdateAttendance(ctx, record); err != nil {
		return nil, fmt.Errorf("update attendance: %w", err)
	}
	s.logger.Info("attendance record retimed", "record_id", id, "timestamp", timestamp)
	return record, nil
}

// DeleteRecord removes a record.
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	if err := s.store.DeleteAttendance(ctx, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	s.logger.Info("attendance record deleted", "record_id", id)
	return nil
}
