package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Domain errors are JSON and transport errors plain text; both carry the message.
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertSortedByDuration verifies durations are non-increasing
func AssertSortedByDuration(t *testing.T, durations []int64) {
	t.Helper()
	for i := 1; i < len(durations); i++ {
		assert.GreaterOrEqual(t, durations[i-1], durations[i], "entry %d out of order: %v", i, durations)
	}
}

// DecodeJSON decodes the response body into v
func DecodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	AssertJSONResponse(t, resp, &v)
	return v
}
