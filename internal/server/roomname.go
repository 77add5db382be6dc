package server

import (
	"github.com/jordankell/go-messenger/internal/types"
)

// RoomName maps the chat a user has open to its broadcast room key.
// Persisted conversations (groups and saved direct chats) use
// "conversation-<id>". A direct chat with no conversation row yet uses
// "dm-<a>-<b>" with the two user ids sorted so both parties compute the
// same key.
func RoomName(chat *types.ActiveChat, currentUserId string) string {
	if chat == nil {
		return ""
	}

	if chat.Conversation != nil {
		return "conversation-" + chat.Conversation.Id
	}

	if chat.Peer == nil {
		return ""
	}

	a, b := currentUserId, chat.Peer.Id
	if b < a {
		a, b = b, a
	}
	return "dm-" + a + "-" + b
}
