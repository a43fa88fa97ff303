package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// AttendanceRepository stores attendance records.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

func (r *AttendanceRepository) queryOne(ctx context.Context, b sq.SelectBuilder) (*database.AttendanceRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}

	var rec database.AttendanceRecord
	err = r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.IdentityID, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &rec, nil
}

// GetAttendance returns the record with the given ID, or nil.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, id int64) (*database.AttendanceRecord, error) {
	return r.queryOne(ctx, psql.Select("id", "identity_id", "ts_ms").
		From("attendance").
		Where(sq.Eq{"id": id}))
}

// LastAttendance returns the most recent record of an identity, or nil.
func (r *AttendanceRepository) LastAttendance(ctx context.Context, identityID int64) (*database.AttendanceRecord, error) {
	return r.queryOne(ctx, psql.Select("id", "identity_id", "ts_ms").
		From("attendance").
		Where(sq.Eq{"identity_id": identityID}).
		OrderBy("ts_ms DESC", "id DESC").
		Limit(1))
}

// AttendanceBetween returns records in [start, end] joined with identity names, newest first.
func (r *AttendanceRepository) AttendanceBetween(ctx context.Context, start, end int64) ([]database.AttendanceEntry, error) {
	query, args, err := psql.Select(
		"a.id", "a.identity_id", "a.ts_ms", "i.external_key", "i.given_name", "i.family_name",
	).
		From("attendance a").
		LeftJoin("identities i ON i.id = a.identity_id").
		Where(sq.GtOrEq{"a.ts_ms": start}).
		Where(sq.LtOrEq{"a.ts_ms": end}).
		OrderBy("a.ts_ms DESC", "a.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance range query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance range: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceEntry
	for rows.Next() {
		var e database.AttendanceEntry
		var key, given, family sql.NullString
		if err := rows.Scan(&e.ID, &e.IdentityID, &e.Timestamp, &key, &given, &family); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		if key.Valid {
			e.ExternalKey, e.GivenName, e.FamilyName = key.String, given.String, family.String
		} else {
			e.GivenName = database.UnknownName
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

// CreateAttendance inserts a record. A missing identity yields database.ErrNotFound.
func (r *AttendanceRepository) CreateAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	err := r.pool.QueryRow(ctx,
		"INSERT INTO attendance (identity_id, ts_ms) VALUES ($1, $2) RETURNING id",
		record.IdentityID, record.Timestamp,
	).Scan(&record.ID)
	if pqCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("identity %d: %w", record.IdentityID, database.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// UpdateAttendance replaces identity and timestamp of an existing record.
func (r *AttendanceRepository) UpdateAttendance(ctx context.Context, record *database.AttendanceRecord) error {
	query, args, err := psql.Update("attendance").
		Set("identity_id", record.IdentityID).
		Set("ts_ms", record.Timestamp).
		Where(sq.Eq{"id": record.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build attendance update: %w", err)
	}

	res, err := r.pool.Exec(ctx, query, args...)
	if pqCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("identity %d: %w", record.IdentityID, database.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	return requireAffected(res, "attendance", record.ID)
}

// DeleteAttendance removes a record.
func (r *AttendanceRepository) DeleteAttendance(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, "DELETE FROM attendance WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return requireAffected(res, "attendance", id)
}
