package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

const identityColumns = `id, external_key, given_name, family_name, embedding, face_photo_path, created_at, updated_at`

// IdentityRepository stores enrolled identities with their embeddings in a pgvector column.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*database.Identity, error) {
	var (
		i   database.Identity
		vec pgvector.Vector
	)
	if err := row.Scan(&i.ID, &i.ExternalKey, &i.GivenName, &i.FamilyName, &vec,
		&i.FacePhotoPath, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	i.Embedding = vec.Slice()
	return &i, nil
}

func (r *IdentityRepository) getOne(ctx context.Context, where string, arg any) (*database.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE ` + where
	i, err := scanIdentity(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return i, nil
}

// GetIdentity returns the identity with the given ID, or nil.
func (r *IdentityRepository) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetIdentityByKey returns the identity with the given external key, or nil.
func (r *IdentityRepository) GetIdentityByKey(ctx context.Context, externalKey string) (*database.Identity, error) {
	return r.getOne(ctx, "external_key = $1", externalKey)
}

// ListIdentities returns all identities ordered by ID.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

// CountIdentities returns the number of enrolled identities.
func (r *IdentityRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// CreateIdentity inserts a new identity.
func (r *IdentityRepository) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (external_key, given_name, family_name, embedding, face_photo_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, identity.ExternalKey, identity.GivenName, identity.FamilyName,
		pgvector.NewVector(identity.Embedding), identity.FacePhotoPath,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)
	if pqCode(err) == pgUniqueViolation {
		return fmt.Errorf("create identity %s: %w", identity.ExternalKey, database.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

// UpdateIdentityNames changes the given and family name.
func (r *IdentityRepository) UpdateIdentityNames(ctx context.Context, id int64, givenName, familyName string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE identities SET given_name = $2, family_name = $3, updated_at = NOW()
		WHERE id = $1
	`, id, givenName, familyName)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	return requireAffected(res, "identity", id)
}

// DeleteIdentity removes the identity; attendance rows go with it via ON DELETE CASCADE.
func (r *IdentityRepository) DeleteIdentity(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return requireAffected(res, "identity", id)
}
