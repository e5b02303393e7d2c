package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	// Client to Server
	MessageTypePing MessageType = "PING"

	// Server to Client
	MessageTypePong              MessageType = "PONG"
	MessageTypeFeedUpdated       MessageType = "FEED_UPDATED"
	MessageTypeSessionAggregated MessageType = "SESSION_AGGREGATED"
	MessageTypeError             MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Server to Client payloads

// FeedUpdatedPayload tells a follower that a followed user's week changed.
type FeedUpdatedPayload struct {
	UserID    uuid.UUID `json:"userId"`
	WeekKey   string    `json:"weekKey"`
	SessionID uuid.UUID `json:"sessionId"`
	Duration  int64     `json:"duration"`
}

// SessionAggregatedPayload tells the owner their session reached the weekly
// ranking.
type SessionAggregatedPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
	WeekKey   string    `json:"weekKey"`
	Rank      int       `json:"rank"`
	Entries   int       `json:"entries"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
