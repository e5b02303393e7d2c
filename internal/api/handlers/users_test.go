package handlers_test

import (
	"net/http"
	"testing"

	"github.com/dom/sleeplog/internal/api/handlers"
	"github.com/dom/sleeplog/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_FollowUnfollow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice, aliceToken := testutil.NewUserBuilder().
		WithDisplayName("alice").
		BuildAndAuthenticate(t, ts)
	bob, _ := testutil.NewUserBuilder().
		WithDisplayName("bob").
		BuildAndAuthenticate(t, ts)

	followURL := ts.APIURL("/users/" + bob.ID.String() + "/follow")

	tests := []struct {
		name           string
		method         string
		url            string
		expectedStatus int
		expectedCount  int64
		expectedError  string
	}{
		{"follow", http.MethodPost, followURL, http.StatusOK, 1, ""},
		{"duplicate follow", http.MethodPost, followURL, http.StatusUnprocessableEntity, 0, "Unable to follow user"},
		{"self follow", http.MethodPost, ts.APIURL("/users/" + alice.ID.String() + "/follow"), http.StatusUnprocessableEntity, 0, "Unable to follow user"},
		{"unknown target", http.MethodPost, ts.APIURL("/users/" + uuid.NewString() + "/follow"), http.StatusNotFound, 0, "user not found"},
		{"malformed id", http.MethodPost, ts.APIURL("/users/not-a-uuid/follow"), http.StatusBadRequest, 0, "Invalid user ID"},
		{"unfollow", http.MethodDelete, followURL, http.StatusOK, 0, ""},
		{"unfollow without edge", http.MethodDelete, followURL, http.StatusUnprocessableEntity, 0, "Not following user"},
	}

	// Cases share state and run in order.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, tt.url, aliceToken, nil)
			defer resp.Body.Close()

			if tt.expectedError != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
				return
			}
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			profile := testutil.DecodeJSON[handlers.UserProfileResponse](t, resp)
			assert.Equal(t, alice.ID.String(), profile.ID)
			assert.Equal(t, tt.expectedCount, profile.FollowingCount)
		})
	}
}

func TestUserHandler_GetAndList(t *testing.T) {
	ts := testutil.NewTestServer(t)

	alice, token := testutil.NewUserBuilder().
		WithDisplayName("alice").
		BuildAndAuthenticate(t, ts)
	bob, _ := testutil.NewUserBuilder().
		WithDisplayName("bob").
		BuildAndAuthenticate(t, ts)

	resp := do(t, http.MethodPost, ts.APIURL("/users/"+bob.ID.String()+"/follow"), token, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("get reflects both sides", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.APIURL("/users/"+bob.ID.String()), token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		profile := testutil.DecodeJSON[handlers.UserProfileResponse](t, resp)
		assert.Equal(t, "bob", profile.DisplayName)
		assert.Equal(t, int64(1), profile.FollowersCount)
		assert.Equal(t, int64(0), profile.FollowingCount)
	})

	t.Run("get unknown", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.APIURL("/users/"+uuid.NewString()), token, nil)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "user not found")
	})

	t.Run("list", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.APIURL("/users"), token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		profiles := testutil.DecodeJSON[[]handlers.UserProfileResponse](t, resp)
		require.Len(t, profiles, 2)
		byID := map[string]handlers.UserProfileResponse{}
		for _, p := range profiles {
			byID[p.ID] = p
		}
		assert.Equal(t, int64(1), byID[alice.ID.String()].FollowingCount)
		assert.Equal(t, int64(1), byID[bob.ID.String()].FollowersCount)
	})
}
