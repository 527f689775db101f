package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	// Client to server.
	TypeConversationItem MessageType = "conversation_item"
	TypeUserTranscribed  MessageType = "user_transcribed"
	TypeSessionControl   MessageType = "session_control"

	// Server to client.
	TypeAgentSay         MessageType = "agent_say"
	TypeSessionHeartbeat MessageType = "session_heartbeat"
	TypeSessionEnded     MessageType = "session_ended"
	TypeErrorEvent       MessageType = "error_event"
)

// Actions carried by session_control messages.
const (
	ActionEnd               = "end"
	ActionUserTurnCompleted = "user_turn_completed"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ConversationItem is the structured turn event emitted when a conversation
// item is committed to the session history.
type ConversationItem struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	Role   string      `json:"role"`
	Text   string      `json:"text"`
	TSMs   int64       `json:"ts_ms"`
}

// UserTranscribed is the raw speech-to-text event for a finished user
// utterance. It overlaps with ConversationItem for the same speech.
type UserTranscribed struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	Text   string      `json:"text"`
	Final  bool        `json:"final"`
	TSMs   int64       `json:"ts_ms"`
}

// SessionControl carries client lifecycle actions for a running session.
type SessionControl struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	Action string      `json:"action"`
	Reason string      `json:"reason,omitempty"`
}

// AgentSay instructs the client to speak text through the agent voice.
type AgentSay struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	Text   string      `json:"text"`
	Final  bool        `json:"final"`
}

// SessionHeartbeat reports session progress to the client.
type SessionHeartbeat struct {
	Type       MessageType `json:"type"`
	RoomID     string      `json:"room_id"`
	ElapsedSec int64       `json:"elapsed_sec"`
	Phase      string      `json:"phase"`
}

// SessionEnded notifies the client that the server closed the session.
type SessionEnded struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	Reason string      `json:"reason"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"room_id"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound websocket frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeConversationItem:
		var msg ConversationItem
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" || (msg.Role != "user" && msg.Role != "assistant") {
			return nil, errors.New("invalid conversation_item")
		}
		return msg, nil
	case TypeUserTranscribed:
		var msg UserTranscribed
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			return nil, errors.New("invalid user_transcribed")
		}
		return msg, nil
	case TypeSessionControl:
		var msg SessionControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Action != ActionEnd && msg.Action != ActionUserTurnCompleted {
			return nil, fmt.Errorf("invalid session_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
