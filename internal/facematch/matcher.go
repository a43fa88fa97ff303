package facematch

import (
	"errors"
	"fmt"
)

// MatcherConfig holds the acceptance settings of a Matcher.
type MatcherConfig struct {
	Metric    Metric
	Threshold float64
}

// Matcher finds the closest candidate by linear scan and accepts it below a threshold.
type Matcher struct {
	metric    Metric
	threshold float64
}

// NewMatcher validates cfg and returns a Matcher.
func NewMatcher(cfg MatcherConfig) (*Matcher, error) {
	if _, err := ParseMetric(string(cfg.Metric)); err != nil {
		return nil, err
	}
	if cfg.Threshold <= 0 {
		return nil, errors.New("distance threshold must be positive")
	}
	return &Matcher{metric: cfg.Metric, threshold: cfg.Threshold}, nil
}

// Metric returns the configured distance metric.
func (m *Matcher) Metric() Metric {
	return m.metric
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// String is used in log lines.
func (m *Matcher) String() string {
	return fmt.Sprintf("%s<%.3f", m.metric, m.threshold)
}

// Match scans gallery for the candidate nearest to query.
// Ties keep the first candidate seen.
func (m *Matcher) Match(query []float32, gallery []Candidate) MatchResult {
	if len(gallery) == 0 {
		return MatchResult{Outcome: MatchNoIdentities, Index: -1, Distance: MaxDistance}
	}

	best := -1
	bestDist := MaxDistance
	for i := range gallery {
		d := m.metric.Distance(query, gallery[i].Embedding)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	result := MatchResult{
		Outcome:    MatchNotRecognized,
		ID:         gallery[best].ID,
		Index:      best,
		Distance:   bestDist,
		Confidence: Confidence(bestDist, m.threshold),
	}
	if bestDist < m.threshold {
		result.Outcome = MatchFound
	}
	return result
}

// Confidence rescales a distance to a display percentage:
// 100 at distance 0, 0 at or beyond the threshold.
func Confidence(distance, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	pct := (1 - distance/threshold) * 100
	return max(0, min(100, pct))
}
