package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/vector"
	"gorm.io/gorm"
)

func (s *Store) firstIdentity(ctx context.Context, query string, arg any) (*database.Identity, error) {
	var m identityModel
	err := s.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return m.toIdentity()
}

// GetIdentity returns the identity with the given ID, or nil.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	return s.firstIdentity(ctx, "id = ?", id)
}

// GetIdentityByKey returns the identity with the given external key, or nil.
func (s *Store) GetIdentityByKey(ctx context.Context, externalKey string) (*database.Identity, error) {
	return s.firstIdentity(ctx, "external_key = ?", externalKey)
}

// ListIdentities returns all identities ordered by ID. An identity whose stored
// embedding cannot be decoded is returned without one, so it never matches.
func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	var models []identityModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}

	out := make([]database.Identity, 0, len(models))
	for i := range models {
		identity := models[i].identity()
		emb, err := vector.Decode(models[i].Embedding)
		if err != nil {
			slog.Warn("unreadable embedding",
				"module", "gormstore",
				"identity_id", models[i].ID,
				"error", err,
			)
		} else {
			identity.Embedding = emb
		}
		out = append(out, identity)
	}
	return out, nil
}

// CountIdentities returns the number of enrolled identities.
func (s *Store) CountIdentities(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&identityModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return int(count), nil
}

// CreateIdentity inserts a new identity.
func (s *Store) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	m := newIdentityModel(identity)
	err := s.db.WithContext(ctx).Create(&m).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("create identity %s: %w", identity.ExternalKey, database.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	identity.ID = m.ID
	identity.CreatedAt = m.CreatedAt
	identity.UpdatedAt = m.UpdatedAt
	return nil
}

// UpdateIdentityNames changes the given and family name.
func (s *Store) UpdateIdentityNames(ctx context.Context, id int64, givenName, familyName string) error {
	tx := s.db.WithContext(ctx).Model(&identityModel{}).Where("id = ?", id).Updates(map[string]any{
		"given_name":  givenName,
		"family_name": familyName,
		"updated_at":  time.Now(),
	})
	if err := requireAffected(tx, "identity", id); err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes the identity and its attendance records in one transaction.
func (s *Store) DeleteIdentity(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identity_id = ?", id).Delete(&attendanceModel{}).Error; err != nil {
			return err
		}
		return requireAffected(tx.Delete(&identityModel{}, id), "identity", id)
	})
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
