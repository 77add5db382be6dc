package types

import (
	"time"
)

type User struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Image     string    `json:"image,omitempty"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Conversation struct {
	Id        string               `json:"id"`
	Name      string               `json:"name,omitempty"`
	IsGroup   bool                 `json:"is_group"`
	Members   []ConversationMember `json:"members,omitempty"`
	CreatedAt time.Time            `json:"created_at,omitempty"`
	UpdatedAt time.Time            `json:"updated_at,omitempty"`
}

type ConversationMember struct {
	ConversationId string    `json:"conversation_id"`
	Role           string    `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
	User           User      `json:"user"`
}

type Message struct {
	Id             string    `json:"id"`
	ConversationId string    `json:"conversation_id"`
	SenderId       string    `json:"sender_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type,omitempty"`
	IsDeleted      bool      `json:"is_deleted,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// ActiveChat identifies the chat a user currently has open: either a
// persisted conversation, or a direct peer for which no conversation row
// exists yet.
type ActiveChat struct {
	Conversation *Conversation `json:"conversation,omitempty"`
	Peer         *User         `json:"peer,omitempty"`
}
