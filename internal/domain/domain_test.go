package domain_test

import (
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekKey(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"monday midnight", time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-10-12"},
		{"wednesday", time.Date(2026, 10, 14, 13, 5, 0, 0, time.UTC), "2026-10-12"},
		{"sunday late", time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC), "2026-10-12"},
		{"crosses month", time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC), "2026-10-26"},
		{"non-utc input", time.Date(2026, 10, 19, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)), "2026-10-12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.WeekKey(tt.at))
		})
	}
}

func TestPreviousWeekKey(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-05", domain.PreviousWeekKey(now))
}

func TestParseWeekKey(t *testing.T) {
	key, err := domain.ParseWeekKey("2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-12", key)

	_, err = domain.ParseWeekKey("last week")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSleepSession_CloseAt(t *testing.T) {
	in := time.Date(2026, 10, 12, 22, 0, 0, 0, time.UTC)
	open := &domain.SleepSession{ID: uuid.New(), UserID: uuid.New(), ClockInTime: in}

	tests := []struct {
		name         string
		out          time.Time
		wantDuration int64
		wantErr      bool
	}{
		{"eight hours", in.Add(8 * time.Hour), 28800, false},
		{"floors fractional seconds", in.Add(90*time.Second + 999*time.Millisecond), 90, false},
		{"sub-second session", in.Add(300 * time.Millisecond), 0, false},
		{"equal times rejected", in, 0, true},
		{"clock out before clock in rejected", in.Add(-time.Minute), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closed, err := open.CloseAt(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}

			require.NoError(t, err)
			assert.True(t, closed.Completed())
			assert.Equal(t, tt.wantDuration, closed.Duration)
			assert.False(t, open.Completed(), "receiver must stay open")
		})
	}
}

func TestSleepSession_ValidateRequiresClockIn(t *testing.T) {
	s := &domain.SleepSession{UserID: uuid.New()}
	assert.ErrorIs(t, s.Validate(), domain.ErrValidation)

	s = &domain.SleepSession{ClockInTime: time.Now()}
	assert.ErrorIs(t, s.Validate(), domain.ErrValidation)
}

func TestUpsertRanked(t *testing.T) {
	a := domain.WeeklyEntry{ID: uuid.New(), Duration: 100}
	b := domain.WeeklyEntry{ID: uuid.New(), Duration: 300}
	c := domain.WeeklyEntry{ID: uuid.New(), Duration: 200}

	entries := domain.UpsertRanked(nil, a)
	entries = domain.UpsertRanked(entries, b)
	entries = domain.UpsertRanked(entries, c)
	require.Len(t, entries, 3)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, ids(entries))

	// Redelivery of the same snapshot does not duplicate it.
	again := domain.UpsertRanked(entries, c)
	assert.Equal(t, ids(entries), ids(again))

	// A re-processed session moves to its new rank.
	a.Duration = 500
	moved := domain.UpsertRanked(entries, a)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, ids(moved))

	// Input slice is untouched.
	assert.Equal(t, []uuid.UUID{b.ID, c.ID, a.ID}, ids(entries))
}

func TestUpsertRanked_TiesKeepInsertionOrder(t *testing.T) {
	first := domain.WeeklyEntry{ID: uuid.New(), Duration: 60}
	second := domain.WeeklyEntry{ID: uuid.New(), Duration: 60}

	entries := domain.UpsertRanked(domain.UpsertRanked(nil, first), second)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, ids(entries))
}

func TestNewWeeklyEntry(t *testing.T) {
	in := time.Date(2026, 10, 12, 22, 0, 0, 0, time.UTC)
	s := &domain.SleepSession{ID: uuid.New(), UserID: uuid.New(), ClockInTime: in}

	_, ok := domain.NewWeeklyEntry(s)
	assert.False(t, ok)

	closed, err := s.CloseAt(in.Add(time.Hour))
	require.NoError(t, err)
	entry, ok := domain.NewWeeklyEntry(closed)
	require.True(t, ok)
	assert.Equal(t, closed.ID, entry.ID)
	assert.Equal(t, int64(3600), entry.Duration)
}

func TestNewAggregationTask(t *testing.T) {
	// Sunday night into Monday belongs to the clock-in week.
	in := time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC)
	s := &domain.SleepSession{ID: uuid.New(), UserID: uuid.New(), ClockInTime: in}

	_, err := domain.NewAggregationTask(s)
	assert.ErrorIs(t, err, domain.ErrValidation)

	closed, err := s.CloseAt(in.Add(8 * time.Hour))
	require.NoError(t, err)
	task, err := domain.NewAggregationTask(closed)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, task.UserID)
	assert.Equal(t, "2026-10-12", task.WeekKey)
	assert.Equal(t, closed.ID, task.Session.ID)
	assert.Equal(t, int64(8*3600), task.Session.Duration)
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, domain.ErrNoSessionToClose, domain.ErrNotFound)
	assert.ErrorIs(t, domain.ErrSessionCompleted, domain.ErrConflict)
	assert.ErrorIs(t, domain.ErrSessionAlreadyOpen, domain.ErrConflict)
	assert.NotErrorIs(t, domain.ErrNoSessionToClose, domain.ErrConflict)
}

func ids(entries []domain.WeeklyEntry) []uuid.UUID {
	out := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
