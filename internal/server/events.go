package server

import (
	"encoding/json"
	"time"
)

// Client-emitted events.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSendMessage     = "send-message"
	EventTypingIndicator = "typing-indicator"
	EventStopTyping      = "stop-typing"
)

// Server-emitted events.
const (
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventRoomInfo          = "room-info"
	EventMessageReceived   = "message-received"
	EventMessageError      = "message-error"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
)

// Envelope is the wire frame for every event in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoom struct {
	RoomName    string          `json:"roomName"`
	UserId      string          `json:"userId"`
	ChatDetails json.RawMessage `json:"chatDetails,omitempty"`
}

type LeaveRoom struct {
	RoomName string `json:"roomName"`
}

type SendMessage struct {
	RoomName       string `json:"roomName"`
	UserId         string `json:"userId"`
	Content        string `json:"content"`
	ConversationId string `json:"conversationId,omitempty"`
}

type TypingIndicator struct {
	RoomName string `json:"roomName"`
	UserId   string `json:"userId"`
	UserName string `json:"userName"`
}

type StopTyping struct {
	RoomName string `json:"roomName"`
	UserId   string `json:"userId"`
}

// ServerEvent pairs an outbound event name with its payload. It marshals
// into the same envelope shape clients send.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type UserJoined struct {
	UserId    string    `json:"userId"`
	RoomName  string    `json:"roomName"`
	Timestamp time.Time `json:"timestamp"`
}

type UserLeft struct {
	UserId    string    `json:"userId"`
	RoomName  string    `json:"roomName"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomInfo struct {
	MemberCount int    `json:"memberCount"`
	RoomName    string `json:"roomName"`
}

type MessageReceived struct {
	RoomName       string    `json:"roomName"`
	UserId         string    `json:"userId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationId string    `json:"conversationId,omitempty"`
}

type MessageError struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type UserTyping struct {
	UserId    string    `json:"userId"`
	UserName  string    `json:"userName"`
	RoomName  string    `json:"roomName"`
	Timestamp time.Time `json:"timestamp"`
}

type UserStoppedTyping struct {
	UserId    string    `json:"userId"`
	RoomName  string    `json:"roomName"`
	Timestamp time.Time `json:"timestamp"`
}

// Now is the timestamp attached to every broadcast. UTC, millisecond
// precision, so it marshals to a compact ISO-8601 string.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
