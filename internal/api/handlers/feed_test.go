package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/api/handlers"
	"github.com/dom/sleeplog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An 8h session shows up in a follower's previous-week feed only once its
// aggregation job has run.
func TestFeedHandler_EndToEnd(t *testing.T) {
	ts := testutil.NewTestServer(t)
	clk := newClock(time.Date(2026, 10, 5, 22, 0, 0, 0, time.UTC))
	ts.Services.Sleep.SetClock(clk.Now)
	ts.Services.Feed.SetClock(func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) })

	sleeper, sleeperToken := testutil.NewUserBuilder().
		WithDisplayName("sleeper").
		BuildAndAuthenticate(t, ts)
	_, followerToken := testutil.NewUserBuilder().
		WithDisplayName("follower").
		BuildAndAuthenticate(t, ts)

	resp := do(t, http.MethodPost, ts.APIURL("/users/"+sleeper.ID.String()+"/follow"), followerToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-in"), sleeperToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	clk.Set(time.Date(2026, 10, 6, 6, 0, 0, 0, time.UTC))
	resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), sleeperToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	feed := func() handlers.FeedResponse {
		resp := do(t, http.MethodGet, ts.APIURL("/feed"), followerToken, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return testutil.DecodeJSON[handlers.FeedResponse](t, resp)
	}

	before := feed()
	assert.Equal(t, "2026-10-05", before.WeekKey)
	assert.Empty(t, before.Entries, "not visible before aggregation")

	assert.Equal(t, 1, ts.DrainJobs(t))

	after := feed()
	require.Len(t, after.Entries, 1)
	assert.Equal(t, int64(28800), after.Entries[0].Duration)
	assert.Equal(t, "sleeper", after.Entries[0].User.DisplayName)
	assert.Equal(t, sleeper.ID.String(), after.Entries[0].User.ID)

	t.Run("the owner's own feed excludes their sessions", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.APIURL("/feed"), sleeperToken, nil)
		defer resp.Body.Close()
		own := testutil.DecodeJSON[handlers.FeedResponse](t, resp)
		assert.Empty(t, own.Entries)
	})
}

func TestFeedHandler_WeekParameter(t *testing.T) {
	ts := testutil.NewTestServer(t)

	sleeper, _ := testutil.NewUserBuilder().WithDisplayName("sleeper").Build(t, ts.DB.DB)
	_, token := testutil.NewUserBuilder().
		WithDisplayName("follower").
		BuildAndAuthenticate(t, ts)
	follower, err := ts.Repos.User.GetByDisplayName(t.Context(), "follower")
	require.NoError(t, err)
	testutil.Follow(t, ts.DB.DB, follower, sleeper)

	in := time.Date(2026, 9, 29, 23, 0, 0, 0, time.UTC)
	session := testutil.NewSleepSessionBuilder(sleeper).
		WithClockIn(in).
		WithClockOut(in.Add(7*time.Hour)).
		Build(t, ts.DB.DB)
	require.NoError(t, ts.Services.Aggregation.Aggregate(t.Context(), aggregationTask(t, session)))

	tests := []struct {
		name           string
		week           string
		expectedStatus int
		expectedLen    int
	}{
		{"matching week", "2026-09-28", http.StatusOK, 1},
		{"any day normalizes to monday", "2026-10-01", http.StatusOK, 1},
		{"other week", "2026-10-05", http.StatusOK, 0},
		{"malformed week", "last-week", http.StatusUnprocessableEntity, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, ts.APIURL("/feed?week="+tt.week), token, nil)
			defer resp.Body.Close()
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				feed := testutil.DecodeJSON[handlers.FeedResponse](t, resp)
				assert.Len(t, feed.Entries, tt.expectedLen)
			}
		})
	}
}
