package entity

import (
	"fmt"
	"time"
)

// FrequencyTier is a coarse scrape-frequency class for a source.
type FrequencyTier int

const (
	TierHourly     FrequencyTier = 1
	TierFourHourly FrequencyTier = 2
	TierSixHourly  FrequencyTier = 3
	TierDaily      FrequencyTier = 4

	defaultTier = TierFourHourly
)

// Interval returns the scheduling interval for the tier. Unknown tiers are
// coerced to TierFourHourly by the caller (see CoerceTier); Interval itself
// assumes a valid tier.
func (t FrequencyTier) Interval() time.Duration {
	switch t {
	case TierHourly:
		return 1 * time.Hour
	case TierFourHourly:
		return 4 * time.Hour
	case TierSixHourly:
		return 6 * time.Hour
	case TierDaily:
		return 24 * time.Hour
	default:
		return defaultTier.Interval()
	}
}

// CoerceTier maps any value outside {1,2,3,4} to TierFourHourly and reports
// whether coercion happened, so the caller can log a warning.
func CoerceTier(v int) (tier FrequencyTier, coerced bool) {
	switch FrequencyTier(v) {
	case TierHourly, TierFourHourly, TierSixHourly, TierDaily:
		return FrequencyTier(v), false
	default:
		return defaultTier, true
	}
}

// Source is a publisher's RSS/Atom/RDF feed.
type Source struct {
	ID                int64
	URL               string
	Name              string
	Category          string
	Paywall           bool
	FrequencyTier     FrequencyTier
	LastCheckedAt     *time.Time
	DoInitializedAt   *time.Time
	CreatedAt         time.Time
}

// Validate checks invariants that must hold before a Source is persisted.
func (s *Source) Validate() error {
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}
	if err := ValidateURL(s.URL); err != nil {
		return err
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if tier, coerced := CoerceTier(int(s.FrequencyTier)); coerced {
		return &ValidationError{Field: "frequencyTier", Message: fmt.Sprintf("invalid tier %d, would coerce to %d", s.FrequencyTier, tier)}
	}
	return nil
}

// Initialized reports whether a scheduler instance has been armed for this
// source (spec §3: "a source with no scheduler-initialized timestamp has no
// scheduler instance running for it").
func (s *Source) Initialized() bool {
	return s.DoInitializedAt != nil
}
