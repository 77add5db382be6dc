package database

import "time"

type User struct {
	Id           string
	Username     string
	Email        string
	Name         string
	Image        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Conversation struct {
	Id        string
	Name      string
	IsGroup   bool
	Members   []ConversationMember
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ConversationMember struct {
	ConversationId string
	UserId         string
	Role           string
	JoinedAt       time.Time
	User           User
}

type Message struct {
	Id             string
	ConversationId string
	SenderId       string
	Content        string
	MessageType    string
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CreateAccountParams struct {
	Id           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       string
	Username     string
	PasswordHash string
}

type CreateGroupParams struct {
	Id        string
	Name      string
	CreatorId string
	MemberIds []string
}

type CreateDirectMessageParams struct {
	ConversationId string
	MessageId      string
	SenderId       string
	RecipientId    string
	Content        string
}
