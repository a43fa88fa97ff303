package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Outcome is the kind of result a check-in produced.
type Outcome string

const (
	OutcomeCheckedIn     Outcome = "checked_in"
	OutcomeNoIdentities  Outcome = "no_identities"
	OutcomeNotRecognized Outcome = "not_recognized"
	OutcomeCooldown      Outcome = "cooldown"
)

// CheckInResult is the tagged result of a check-in. Failures to read or write the store
// are returned as errors instead.
type CheckInResult struct {
	Outcome Outcome `json:"outcome"`
	// Identity is set for OutcomeCheckedIn and OutcomeCooldown.
	Identity *database.Identity `json:"identity,omitempty"`
	// Record is the created record for OutcomeCheckedIn and the blocking record for OutcomeCooldown.
	Record     *database.AttendanceRecord `json:"record,omitempty"`
	Distance   float64                    `json:"distance"`
	Confidence float64                    `json:"confidence"`
	// NearestID is the closest rejected identity for OutcomeNotRecognized.
	NearestID         int64         `json:"nearest_id,omitempty"`
	RetryAfter        time.Duration `json:"-"`
	RetryAfterSeconds int64         `json:"retry_after_seconds,omitempty"`
}

// Message is a short operator-facing description of the result.
func (r *CheckInResult) Message() string {
	switch r.Outcome {
	case OutcomeCheckedIn:
		return fmt.Sprintf("Attendance marked for %s", facematch.FullName(r.Identity.GivenName, r.Identity.FamilyName))
	case OutcomeCooldown:
		return fmt.Sprintf("%s is already marked, retry after %d seconds",
			facematch.FullName(r.Identity.GivenName, r.Identity.FamilyName), r.RetryAfterSeconds)
	case OutcomeNoIdentities:
		return "No people are enrolled"
	default:
		return "Face not recognized"
	}
}

// CheckIn matches embedding against a fresh snapshot of enrolled identities and,
// when the nearest one is accepted and out of cooldown, records attendance.
func (s *Service) CheckIn(ctx context.Context, embedding []float32) (*CheckInResult, error) {
	start := time.Now()
	result, err := s.checkIn(ctx, embedding)
	if err != nil {
		s.metrics.RecordError("checkin")
		return nil, err
	}
	s.metrics.RecordCheckIn(string(result.Outcome), time.Since(start))
	return result, nil
}

// CheckInImage detects the best face in imageData and checks it in.
func (s *Service) CheckInImage(ctx context.Context, imageData []byte) (*CheckInResult, error) {
	face, err := s.detectBest(ctx, imageData)
	if err != nil {
		return nil, err
	}
	return s.CheckIn(ctx, face.Embedding)
}

func (s *Service) checkIn(ctx context.Context, embedding []float32) (*CheckInResult, error) {
	if err := checkUsableEmbedding(embedding, s.dim); err != nil {
		return nil, err
	}

	identities, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	s.metrics.SetEnrolledIdentities(len(identities))

	gallery := make([]facematch.Candidate, len(identities))
	for i := range identities {
		gallery[i] = facematch.Candidate{ID: identities[i].ID, Embedding: identities[i].Embedding}
	}

	match := s.matcher.Match(embedding, gallery)
	switch match.Outcome {
	case facematch.MatchNoIdentities:
		return &CheckInResult{Outcome: OutcomeNoIdentities}, nil
	case facematch.MatchNotRecognized:
		s.metrics.RecordMatchDistance(match.Distance)
		s.logger.Debug("face not recognized",
			"nearest_id", match.ID,
			"distance", match.Distance,
			"matcher", s.matcher.String(),
		)
		return &CheckInResult{
			Outcome:    OutcomeNotRecognized,
			Distance:   match.Distance,
			Confidence: match.Confidence,
			NearestID:  match.ID,
		}, nil
	}
	s.metrics.RecordMatchDistance(match.Distance)

	identity := identities[match.Index]
	identity.Embedding = nil

	s.markMu.Lock()
	defer s.markMu.Unlock()

	last, err := s.store.LastAttendance(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("get last attendance: %w", err)
	}

	now := s.now().UnixMilli()
	decision := s.policy.Evaluate(now, last)
	if !decision.Allowed {
		return &CheckInResult{
			Outcome:           OutcomeCooldown,
			Identity:          &identity,
			Record:            last,
			Distance:          match.Distance,
			Confidence:        match.Confidence,
			RetryAfter:        decision.RetryAfter(),
			RetryAfterSeconds: decision.RetryAfterSeconds(),
		}, nil
	}

	record := &database.AttendanceRecord{
		IdentityID: identity.ID,
		Timestamp:  now,
		Confidence: match.Confidence,
	}
	if err := s.store.CreateAttendance(ctx, record); err != nil {
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	s.logger.Info("attendance marked",
		"identity_id", identity.ID,
		"external_key", identity.ExternalKey,
		"distance", match.Distance,
		"confidence", match.Confidence,
	)

	return &CheckInResult{
		Outcome:    OutcomeCheckedIn,
		Identity:   &identity,
		Record:     record,
		Distance:   match.Distance,
		Confidence: match.Confidence,
	}, nil
}
