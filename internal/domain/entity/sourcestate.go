package entity

import "time"

// SourceState is the persisted per-scheduler-instance control block (spec §3,
// §6 "persisted state layout"). Stored as a one-row-per-source blob under key
// `state`, validated on every read.
type SourceState struct {
	SourceID      int64
	URL           string
	FrequencyTier FrequencyTier
	LastCheckedAt *time.Time
}

// Validate shape-validates the state per spec §4.5 step 1 / §9: if invalid,
// the scraper must refuse to act and re-arm far in the future rather than
// acting on corrupt data.
func (s *SourceState) Validate() error {
	if s == nil {
		return &ValidationError{Field: "sourceState", Message: "is nil"}
	}
	if s.SourceID <= 0 {
		return &ValidationError{Field: "sourceId", Message: "must be positive"}
	}
	if s.URL == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}
	if _, coerced := CoerceTier(int(s.FrequencyTier)); coerced {
		return &ValidationError{Field: "frequencyTier", Message: "invalid tier"}
	}
	return nil
}

// SchedulerState is the in-memory lifecycle state of a source scraper
// instance (spec §4.5): UNINITIALIZED → SCHEDULED → RUNNING → SCHEDULED,
// terminal DESTROYED.
type SchedulerState string

const (
	SchedulerUninitialized SchedulerState = "UNINITIALIZED"
	SchedulerScheduled     SchedulerState = "SCHEDULED"
	SchedulerRunning       SchedulerState = "RUNNING"
	SchedulerDestroyed     SchedulerState = "DESTROYED"
)

// SchedulerStatus is the response shape for the admin "status" surface.
type SchedulerStatus struct {
	State      SchedulerState
	NextTickAt *time.Time
}
