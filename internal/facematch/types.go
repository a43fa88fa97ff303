// Package facematch compares face feature vectors and picks the closest enrolled identity.
package facematch

import (
	"fmt"
	"strings"
)

// Metric names a distance function over feature vectors.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
)

// ParseMetric converts a configuration value to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricEuclidean:
		return MetricEuclidean, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", s)
	}
}

// Distance computes the distance between a and b with this metric.
func (m Metric) Distance(a, b []float32) float64 {
	if m == MetricEuclidean {
		return EuclideanDistance(a, b)
	}
	return CosineDistance(a, b)
}

// MatchOutcome is the kind of result a scan produced.
type MatchOutcome string

const (
	MatchFound         MatchOutcome = "matched"
	MatchNoIdentities  MatchOutcome = "no_identities"
	MatchNotRecognized MatchOutcome = "not_recognized"
)

// Candidate is one enrolled vector in a gallery snapshot.
type Candidate struct {
	ID        int64
	Embedding []float32
}

// MatchResult describes the nearest candidate found by a scan.
// For MatchNotRecognized, ID, Index and Distance still describe the nearest candidate.
type MatchResult struct {
	Outcome    MatchOutcome `json:"outcome"`
	ID         int64        `json:"id,omitempty"`
	Index      int          `json:"-"`
	Distance   float64      `json:"distance"`
	Confidence float64      `json:"confidence"`
}

// Matched reports whether the nearest candidate was accepted.
func (r MatchResult) Matched() bool {
	return r.Outcome == MatchFound
}
