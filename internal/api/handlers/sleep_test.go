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

func TestSleepHandler_ClockInOut(t *testing.T) {
	ts := testutil.NewTestServer(t)
	clk := newClock(time.Date(2026, 10, 5, 22, 0, 0, 0, time.UTC))
	ts.Services.Sleep.SetClock(clk.Now)

	_, token := testutil.NewUserBuilder().
		WithDisplayName("sleeper").
		BuildAndAuthenticate(t, ts)

	resp := do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-in"), token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	opened := testutil.DecodeJSON[handlers.SleepSessionResponse](t, resp)
	assert.False(t, opened.Completed)
	assert.Nil(t, opened.ClockOutTime)
	assert.Zero(t, opened.Duration)

	clk.Set(time.Date(2026, 10, 6, 6, 0, 0, 999_000, time.UTC))

	resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	closed := testutil.DecodeJSON[handlers.SleepSessionResponse](t, resp)
	assert.Equal(t, opened.ID, closed.ID)
	assert.True(t, closed.Completed)
	require.NotNil(t, closed.ClockOutTime)
	assert.Equal(t, int64(28800), closed.Duration)
}

func TestSleepHandler_Errors(t *testing.T) {
	ts := testutil.NewTestServer(t)
	clk := newClock(time.Date(2026, 10, 5, 22, 0, 0, 0, time.UTC))
	ts.Services.Sleep.SetClock(clk.Now)

	_, token := testutil.NewUserBuilder().
		WithDisplayName("errors").
		BuildAndAuthenticate(t, ts)

	t.Run("clock out without a session", func(t *testing.T) {
		resp := do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), token, nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "no session to close")
	})

	t.Run("second clock in", func(t *testing.T) {
		resp := do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-in"), token, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-in"), token, nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusConflict, "session already open")
	})

	t.Run("clock out before clock in", func(t *testing.T) {
		clk.Set(time.Date(2026, 10, 5, 21, 0, 0, 0, time.UTC))
		resp := do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), token, nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusUnprocessableEntity, "validation failed")
	})

	t.Run("second clock out", func(t *testing.T) {
		clk.Set(time.Date(2026, 10, 6, 6, 0, 0, 0, time.UTC))
		resp := do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), token, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), token, nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusConflict, "already completed")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-in"), "", nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Authorization header required")
	})
}

func TestSleepHandler_List(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, token := testutil.NewUserBuilder().
		WithDisplayName("lister").
		BuildAndAuthenticate(t, ts)

	base := time.Date(2026, 10, 1, 22, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		in := base.Add(time.Duration(i) * 24 * time.Hour)
		testutil.NewSleepSessionBuilder(user).
			WithClockIn(in).
			WithClockOut(in.Add(time.Duration(6+i)*time.Hour)).
			Build(t, ts.DB.DB)
	}

	resp := do(t, http.MethodGet, ts.APIURL("/sleep-sessions?limit=2"), token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessions := testutil.DecodeJSON[[]handlers.SleepSessionResponse](t, resp)
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].CreatedAt.After(sessions[1].CreatedAt), "newest first")
	assert.Equal(t, int64(8*3600), sessions[0].Duration)
}
