package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	displayName string
	password    string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		displayName: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password:    "testpassword123",
	}
}

// WithDisplayName sets the display name
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.displayName = name
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		DisplayName:  b.displayName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

// BuildAndAuthenticate creates a user via API and returns the user and access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	reqBody := map[string]string{
		"displayName": b.displayName,
		"password":    b.password,
	}
	body, _ := json.Marshal(reqBody)

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.User.ID)
	user := &domain.User{
		ID:          userID,
		DisplayName: authResp.User.DisplayName,
	}

	return user, authResp.AccessToken
}

// SleepSessionBuilder creates test sleep sessions with a builder pattern
type SleepSessionBuilder struct {
	user      *domain.User
	clockIn   time.Time
	clockOut  *time.Time
	createdAt time.Time
}

// NewSleepSessionBuilder creates an open session for user that started an hour ago
func NewSleepSessionBuilder(user *domain.User) *SleepSessionBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &SleepSessionBuilder{
		user:      user,
		clockIn:   now.Add(-time.Hour),
		createdAt: now.Add(-time.Hour),
	}
}

// WithClockIn sets the clock-in time and, unless set later, the creation time
func (b *SleepSessionBuilder) WithClockIn(t time.Time) *SleepSessionBuilder {
	b.clockIn = t
	b.createdAt = t
	return b
}

// WithClockOut closes the session at t
func (b *SleepSessionBuilder) WithClockOut(t time.Time) *SleepSessionBuilder {
	b.clockOut = &t
	return b
}

// WithCreatedAt overrides the creation time
func (b *SleepSessionBuilder) WithCreatedAt(t time.Time) *SleepSessionBuilder {
	b.createdAt = t
	return b
}

// Build creates the session in the database
func (b *SleepSessionBuilder) Build(t *testing.T, db *gorm.DB) *domain.SleepSession {
	t.Helper()

	session := &domain.SleepSession{
		ID:           uuid.New(),
		UserID:       b.user.ID,
		ClockInTime:  b.clockIn,
		ClockOutTime: b.clockOut,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.createdAt,
	}
	if b.clockOut != nil {
		session.Duration = domain.SecondsBetween(b.clockIn, *b.clockOut)
	}

	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to create sleep session: %v", err)
	}

	return session
}

// Follow creates a follow edge directly in the database
func Follow(t *testing.T, db *gorm.DB, follower, followed *domain.User) {
	t.Helper()

	edge := &domain.Follow{
		FollowerID: follower.ID,
		FollowedID: followed.ID,
		CreatedAt:  time.Now(),
	}
	if err := db.Create(edge).Error; err != nil {
		t.Fatalf("failed to create follow: %v", err)
	}
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}
