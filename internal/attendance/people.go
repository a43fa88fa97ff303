package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// EnrollRequest holds the personal data of a new identity.
type EnrollRequest struct {
	ExternalKey string `json:"external_key" validate:"required,min=8,max=64"`
	GivenName   string `json:"given_name" validate:"required,max=100"`
	FamilyName  string `json:"family_name" validate:"required,max=100"`
}

func (r *EnrollRequest) normalize() {
	r.ExternalKey = strings.TrimSpace(r.ExternalKey)
	r.GivenName = strings.TrimSpace(r.GivenName)
	r.FamilyName = strings.TrimSpace(r.FamilyName)
}

// UpdateNamesRequest changes the name fields of an identity.
type UpdateNamesRequest struct {
	GivenName  string `json:"given_name" validate:"required,max=100"`
	FamilyName string `json:"family_name" validate:"required,max=100"`
}

// checkKeyAvailable returns ErrDuplicateKey when externalKey is enrolled.
func (s *Service) checkKeyAvailable(ctx context.Context, externalKey string) error {
	existing, err := s.store.GetIdentityByKey(ctx, externalKey)
	if err != nil {
		return fmt.Errorf("get identity by key: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", database.ErrDuplicateKey, externalKey)
	}
	return nil
}

// Enroll detects the best face in imageData, stores its crop and creates the identity.
// The duplicate check runs before face detection.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest, imageData []byte) (*database.Identity, error) {
	identity, err := s.enroll(ctx, req, imageData)
	s.metrics.RecordEnrollment(err == nil)
	return identity, err
}

func (s *Service) enroll(ctx context.Context, req EnrollRequest, imageData []byte) (*database.Identity, error) {
	req.normalize()
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if s.faces == nil {
		return nil, errors.New("face storage is not configured")
	}
	if err := s.checkKeyAvailable(ctx, req.ExternalKey); err != nil {
		return nil, err
	}

	face, err := s.detectBest(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if err := checkUsableEmbedding(face.Embedding, s.dim); err != nil {
		return nil, err
	}

	img, err := faceimage.Decode(imageData)
	if err != nil {
		return nil, err
	}
	crop, err := faceimage.CropFace(img, face.BBox)
	if err != nil {
		return nil, fmt.Errorf("crop face: %w", err)
	}
	path, err := s.faces.Save(req.ExternalKey, crop)
	if err != nil {
		return nil, err
	}

	identity := &database.Identity{
		ExternalKey:   req.ExternalKey,
		GivenName:     req.GivenName,
		FamilyName:    req.FamilyName,
		Embedding:     face.Embedding,
		FacePhotoPath: path,
	}
	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		if delErr := s.faces.Delete(path); delErr != nil {
			s.logger.Warn("failed to remove face image", "path", path, "error", delErr)
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	s.logger.Info("identity enrolled",
		"identity_id", identity.ID,
		"external_key", identity.ExternalKey,
		"det_score", face.DetScore,
	)
	return identity, nil
}

// EnrollEmbedding creates an identity from a precomputed embedding without a face image.
func (s *Service) EnrollEmbedding(ctx context.Context, req EnrollRequest, embedding []float32) (*database.Identity, error) {
	identity, err := s.enrollEmbedding(ctx, req, embedding)
	s.metrics.RecordEnrollment(err == nil)
	return identity, err
}

func (s *Service) enrollEmbedding(ctx context.Context, req EnrollRequest, embedding []float32) (*database.Identity, error) {
	req.normalize()
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := checkUsableEmbedding(embedding, s.dim); err != nil {
		return nil, err
	}
	if err := s.checkKeyAvailable(ctx, req.ExternalKey); err != nil {
		return nil, err
	}

	identity := &database.Identity{
		ExternalKey: req.ExternalKey,
		GivenName:   req.GivenName,
		FamilyName:  req.FamilyName,
		Embedding:   embedding,
	}
	if err := s.store.CreateIdentity(ctx, identity); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	s.logger.Info("identity enrolled from embedding", "identity_id", identity.ID, "external_key", identity.ExternalKey)
	return identity, nil
}

// GetIdentity returns the identity with the given ID, or nil.
func (s *Service) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	identity, err := s.store.GetIdentity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

// UpdateNames changes the given and family name. The embedding and photo are never modified.
func (s *Service) UpdateNames(ctx context.Context, id int64, req UpdateNamesRequest) (*database.Identity, error) {
	req.GivenName = strings.TrimSpace(req.GivenName)
	req.FamilyName = strings.TrimSpace(req.FamilyName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := s.store.UpdateIdentityNames(ctx, id, req.GivenName, req.FamilyName); err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}
	return s.GetIdentity(ctx, id)
}

// DeleteIdentity removes the identity, its attendance records and its stored face image.
// Failing to remove the image is logged and does not fail the call.
func (s *Service) DeleteIdentity(ctx context.Context, id int64) error {
	identity, err := s.GetIdentity(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return database.ErrNotFound
	}
	if err := s.store.DeleteIdentity(ctx, id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if s.faces != nil && identity.FacePhotoPath != "" {
		if err := s.faces.Delete(identity.FacePhotoPath); err != nil {
			s.logger.Warn("failed to remove face image", "identity_id", id, "path", identity.FacePhotoPath, "error", err)
		}
	}
	s.logger.Info("identity deleted", "identity_id", id, "external_key", identity.ExternalKey)
	return nil
}

// SearchPeople returns identities whose name or external key matches query, ignoring case
// and diacritics. An empty query returns everyone. Embeddings are not included.
func (s *Service) SearchPeople(ctx context.Context, query string) ([]database.Identity, error) {
	identities, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	result := make([]database.Identity, 0, len(identities))
	for _, identity := range identities {
		if !facematch.NameMatches(query, identity.GivenName, identity.FamilyName, identity.ExternalKey) {
			continue
		}
		identity.Embedding = nil
		result = append(result, identity)
	}
	return result, nil
}

// CountPeople returns the number of enrolled identities.
func (s *Service) CountPeople(ctx context.Context) (int, error) {
	n, err := s.store.CountIdentities(ctx)
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return n, nil
}
