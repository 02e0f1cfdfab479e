// Package protocol defines the network message types for client-server communication.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of message.
type MessageType string

// Authentication message types
const (
	TypeAuthenticate MessageType = "authenticate"
	TypeAuthResult   MessageType = "auth_result"
)

// World message types
const (
	TypeRequestState     MessageType = "request_state"
	TypeWorldState       MessageType = "world_state"
	TypeUpdateMap        MessageType = "update_map"
	TypeUpdateFaceColors MessageType = "update_face_colors"
	TypeWorldEvent       MessageType = "world_event"
	TypeWorldHistory     MessageType = "world_history"
)

// Action message types
const (
	TypeClaimHome      MessageType = "claim_home"
	TypeHomeAssigned   MessageType = "home_assigned"
	TypeSubmitMove     MessageType = "submit_move"
	TypeSpecialize     MessageType = "specialize_fortress"
	TypeRestartGame    MessageType = "restart_game"
	TypeActionResult   MessageType = "action_result"
	TypeWorldRestarted MessageType = "world_restarted"
)

// System message types
const (
	TypeWelcome MessageType = "welcome"
	TypeError   MessageType = "error"
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"
)

// Message is the envelope for all messages.
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}

// ParsePayload unmarshals the payload into the given type.
func (m *Message) ParsePayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// ErrorCode represents an error type.
type ErrorCode string

const (
	ErrCodeInvalidMessage   ErrorCode = "invalid_message"
	ErrCodeNotAuthenticated ErrorCode = "not_authenticated"
	ErrCodeNotOwner         ErrorCode = "not_owner"
	ErrCodeNotAdjacent      ErrorCode = "not_adjacent"
	ErrCodePathCapacity     ErrorCode = "path_capacity"
	ErrCodeIllegalType      ErrorCode = "illegal_type"
	ErrCodeNoHome           ErrorCode = "no_home_available"
	ErrCodeBusy             ErrorCode = "busy"
	ErrCodeRateLimited      ErrorCode = "rate_limited"
	ErrCodeInternalError    ErrorCode = "internal_error"
)

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
