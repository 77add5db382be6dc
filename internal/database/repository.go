package database

import "time"

// UserFilter selects which users ListOtherUsers returns, mirroring the two
// modes of the new-chat screen: starting a direct chat should only offer
// users the caller has no direct conversation with yet, while building a
// group can include anyone.
type UserFilter string

const (
	// FilterNoDirectConversation excludes users who already share a direct
	// conversation with the caller.
	FilterNoDirectConversation UserFilter = "CONV"
	// FilterAllOthers includes every user except the caller.
	FilterAllOthers UserFilter = "GROUP"
)

type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(id string) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListOtherUsers(userId string, filter UserFilter) ([]User, error)
	CreateGroupConversation(params CreateGroupParams) (Conversation, error)
	CreateDirectConversation(params CreateDirectMessageParams) (Conversation, Message, error)
	GetConversationById(id string) (Conversation, error)
	ListConversations(userId string) ([]Conversation, error)
	MemberExists(conversationId, userId string) bool
	CreateMessage(msg Message) (Message, error)
	GetMessages(conversationId string, before time.Time, limit int) ([]Message, error)
}
