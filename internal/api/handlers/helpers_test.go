package handlers_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/testutil"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source shared between the test and the server.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(now time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// do sends an authenticated request. The caller closes the body.
func do(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	req := testutil.CreateAuthenticatedRequest(t, method, url, body, token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func aggregationTask(t *testing.T, session *domain.SleepSession) domain.AggregationTask {
	t.Helper()

	entry, ok := domain.NewWeeklyEntry(session)
	require.True(t, ok, "session must be completed")
	return domain.AggregationTask{
		UserID:  session.UserID,
		Session: entry,
		WeekKey: domain.WeekKey(session.ClockInTime),
	}
}
