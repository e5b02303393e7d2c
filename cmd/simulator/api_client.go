package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

type Profile struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	FollowingCount int64  `json:"followingCount"`
	FollowersCount int64  `json:"followersCount"`
}

type Session struct {
	ID           string     `json:"id"`
	ClockInTime  time.Time  `json:"clockInTime"`
	ClockOutTime *time.Time `json:"clockOutTime"`
	Duration     int64      `json:"duration"`
	Completed    bool       `json:"completed"`
}

type FeedEntry struct {
	ID          string    `json:"id"`
	User        User      `json:"user"`
	ClockInTime time.Time `json:"clockInTime"`
	Duration    int64     `json:"duration"`
}

type Feed struct {
	WeekKey string      `json:"weekKey"`
	Entries []FeedEntry `json:"entries"`
}

// RegisterUser creates a new user account
func (c *APIClient) RegisterUser(baseName string) (*User, string, error) {
	displayName := fmt.Sprintf("%s_%d", baseName, time.Now().UnixNano()%100000)

	body := map[string]string{
		"displayName": displayName,
		"password":    "testpassword123",
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/register", body, "", http.StatusOK, &result); err != nil {
		return nil, "", fmt.Errorf("register: %w", err)
	}
	return &result.User, result.AccessToken, nil
}

// Login authenticates an existing user
func (c *APIClient) Login(displayName, password string) (*User, string, error) {
	body := map[string]string{
		"displayName": displayName,
		"password":    password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/auth/login", body, "", http.StatusOK, &result); err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	return &result.User, result.AccessToken, nil
}

// Follow makes the token's user follow userID
func (c *APIClient) Follow(token, userID string) (*Profile, error) {
	var profile Profile
	if err := c.do(http.MethodPost, "/users/"+userID+"/follow", nil, token, http.StatusOK, &profile); err != nil {
		return nil, fmt.Errorf("follow: %w", err)
	}
	return &profile, nil
}

func (c *APIClient) ClockIn(token string) (*Session, error) {
	var session Session
	if err := c.do(http.MethodPost, "/sleep-sessions/clock-in", nil, token, http.StatusCreated, &session); err != nil {
		return nil, fmt.Errorf("clock in: %w", err)
	}
	return &session, nil
}

func (c *APIClient) ClockOut(token string) (*Session, error) {
	var session Session
	if err := c.do(http.MethodPost, "/sleep-sessions/clock-out", nil, token, http.StatusOK, &session); err != nil {
		return nil, fmt.Errorf("clock out: %w", err)
	}
	return &session, nil
}

// Feed fetches the feed for week, or the previous week when week is empty
func (c *APIClient) Feed(token, week string) (*Feed, error) {
	path := "/feed"
	if week != "" {
		path += "?week=" + week
	}

	var feed Feed
	if err := c.do(http.MethodGet, path, nil, token, http.StatusOK, &feed); err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	return &feed, nil
}

// HTTP helpers

func (c *APIClient) do(method, path string, body interface{}, token string, expected int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expected {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
