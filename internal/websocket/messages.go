package websocket

import (
	"encoding/json"
	"time"
)

// Message types for WebSocket events
const (
	TypeDecision  = "decision"
	TypeOutcome   = "outcome"
	TypeHealth    = "health"
	TypeHeartbeat = "heartbeat"
)

// Outcome events
const (
	EventOutcomeRecorded = "recorded"
	EventConfigReloaded  = "config_reloaded"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType, event string, data interface{}) *Message {
	return &Message{
		Type:      msgType,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OutcomeData is the payload of an outcome event
type OutcomeData struct {
	MerchantID string `json:"merchant_id"`
	Gateway    string `json:"gateway"`
	Success    bool   `json:"success"`
}

// HeartbeatData represents heartbeat message data
type HeartbeatData struct {
	ServerTime  time.Time `json:"server_time"`
	ClientCount int       `json:"client_count"`
}
