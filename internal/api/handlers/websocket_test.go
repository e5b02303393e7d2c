package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/testutil"
	"github.com/dom/sleeplog/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketHandler_RejectsBadTokens(t *testing.T) {
	ts := testutil.NewTestServer(t)

	for _, token := range []string{"", "invalid.token.here"} {
		_, resp, err := gorillaWS.DefaultDialer.Dial(ts.WebSocketURL(token), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestWebSocketHandler_AggregationNotifications(t *testing.T) {
	ts := testutil.NewTestServer(t)
	clk := newClock(time.Date(2026, 10, 5, 22, 0, 0, 0, time.UTC))
	ts.Services.Sleep.SetClock(clk.Now)

	sleeper, sleeperToken := testutil.NewUserBuilder().
		WithDisplayName("sleeper").
		BuildAndAuthenticate(t, ts)
	_, followerToken := testutil.NewUserBuilder().
		WithDisplayName("follower").
		BuildAndAuthenticate(t, ts)

	resp := do(t, http.MethodPost, ts.APIURL("/users/"+sleeper.ID.String()+"/follow"), followerToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dial := func(token string) *gorillaWS.Conn {
		conn, _, err := gorillaWS.DefaultDialer.Dial(ts.WebSocketURL(token), nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	sleeperConn := dial(sleeperToken)
	followerConn := dial(followerToken)
	require.Eventually(t, func() bool { return ts.Hub.ConnectedUsers() == 2 }, 5*time.Second, 10*time.Millisecond)

	resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-in"), sleeperToken, nil)
	resp.Body.Close()
	clk.Set(time.Date(2026, 10, 6, 6, 0, 0, 0, time.UTC))
	resp = do(t, http.MethodPost, ts.APIURL("/sleep-sessions/clock-out"), sleeperToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ts.DrainJobs(t)

	read := func(conn *gorillaWS.Conn) websocket.Message {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg websocket.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	ownerMsg := read(sleeperConn)
	require.Equal(t, websocket.MessageTypeSessionAggregated, ownerMsg.Type)
	var aggregated websocket.SessionAggregatedPayload
	require.NoError(t, json.Unmarshal(ownerMsg.Payload, &aggregated))
	assert.Equal(t, "2026-10-05", aggregated.WeekKey)
	assert.Equal(t, 1, aggregated.Rank)

	followerMsg := read(followerConn)
	require.Equal(t, websocket.MessageTypeFeedUpdated, followerMsg.Type)
	var updated websocket.FeedUpdatedPayload
	require.NoError(t, json.Unmarshal(followerMsg.Payload, &updated))
	assert.Equal(t, sleeper.ID, updated.UserID)
	assert.Equal(t, int64(28800), updated.Duration)
}
