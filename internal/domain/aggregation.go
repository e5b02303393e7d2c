package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// WeeklyEntry is the snapshot of a completed session kept in a weekly bucket.
// The bucket belongs to a single user, so no user identity is stored here.
type WeeklyEntry struct {
	ID           uuid.UUID `json:"id" cbor:"id"`
	ClockInTime  time.Time `json:"clockInTime" cbor:"clock_in_time"`
	ClockOutTime time.Time `json:"clockOutTime" cbor:"clock_out_time"`
	Duration     int64     `json:"duration" cbor:"duration"`
	CreatedAt    time.Time `json:"createdAt" cbor:"created_at"`
}

// NewWeeklyEntry snapshots a completed session. It returns false for open sessions.
func NewWeeklyEntry(s *SleepSession) (WeeklyEntry, bool) {
	if !s.Completed() {
		return WeeklyEntry{}, false
	}
	return WeeklyEntry{
		ID:           s.ID,
		ClockInTime:  s.ClockInTime,
		ClockOutTime: *s.ClockOutTime,
		Duration:     s.Duration,
		CreatedAt:    s.CreatedAt,
	}, true
}

// AggregationTask asks the worker to fold one completed session into the
// owner's weekly bucket. Delivery is at-least-once.
type AggregationTask struct {
	UserID  uuid.UUID   `json:"userId"`
	Session WeeklyEntry `json:"session"`
	WeekKey string      `json:"weekKey"`
}

const AggregationTaskKind = "weekly_aggregation"

// NewAggregationTask builds the task for a completed session, bucketed by the
// week of its clock-in. Open sessions are rejected with ErrValidation.
func NewAggregationTask(s *SleepSession) (AggregationTask, error) {
	entry, ok := NewWeeklyEntry(s)
	if !ok {
		return AggregationTask{}, fmt.Errorf("%w: session %s is still open", ErrValidation, s.ID)
	}
	return AggregationTask{
		UserID:  s.UserID,
		Session: entry,
		WeekKey: WeekKey(s.ClockInTime),
	}, nil
}

// UpsertRanked replaces any entry with the same id, appends entry and re-sorts
// by duration descending. Ties keep insertion order.
func UpsertRanked(entries []WeeklyEntry, entry WeeklyEntry) []WeeklyEntry {
	out := slices.DeleteFunc(slices.Clone(entries), func(e WeeklyEntry) bool {
		return e.ID == entry.ID
	})
	out = append(out, entry)
	slices.SortStableFunc(out, func(a, b WeeklyEntry) int {
		return compareDurationDesc(a.Duration, b.Duration)
	})
	return out
}

// FeedEntry is a weekly entry tagged with its owner at merge time.
type FeedEntry struct {
	WeeklyEntry
	User UserSummary `json:"user"`
}

// SortFeed orders entries by duration descending, stable on ties.
func SortFeed(entries []FeedEntry) {
	slices.SortStableFunc(entries, func(a, b FeedEntry) int {
		return compareDurationDesc(a.Duration, b.Duration)
	})
}

func compareDurationDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
