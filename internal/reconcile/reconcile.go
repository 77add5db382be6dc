// Package reconcile merges paginated message history with live socket
// events into one consistent client-side view, and tracks who is typing.
package reconcile

import (
	"sort"
	"sync"

	"github.com/jordankell/go-messenger/internal/types"
)

// Merge combines history pages with live-received messages, deduplicating
// by message id (the last occurrence wins) and sorting ascending by
// creation time. It is idempotent: merging the same inputs twice yields
// the same result.
func Merge(history, live []types.Message) []types.Message {
	combined := make([]types.Message, 0, len(history)+len(live))
	combined = append(combined, history...)
	combined = append(combined, live...)

	byId := make(map[string]types.Message, len(combined))
	for _, msg := range combined {
		byId[msg.Id] = msg
	}

	merged := make([]types.Message, 0, len(byId))
	for _, msg := range byId {
		merged = append(merged, msg)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].Id < merged[j].Id
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	return merged
}

// TypingSet is the set of user ids currently flagged as typing in the
// active room.
type TypingSet struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func NewTypingSet() *TypingSet {
	return &TypingSet{users: make(map[string]struct{})}
}

func (t *TypingSet) Add(userId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users[userId] = struct{}{}
}

func (t *TypingSet) Remove(userId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.users, userId)
}

func (t *TypingSet) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.users = make(map[string]struct{})
}

func (t *TypingSet) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// Users returns the typing user ids in sorted order.
func (t *TypingSet) Users() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]string, 0, len(t.users))
	for id := range t.users {
		users = append(users, id)
	}
	sort.Strings(users)

	return users
}

// View is the client-local state for one open chat: the live message
// buffer and the typing set. Switching chats resets both, so stale data
// from the previous room never leaks into the new one.
type View struct {
	mu     sync.Mutex
	room   string
	live   []types.Message
	Typing *TypingSet
}

func NewView() *View {
	return &View{Typing: NewTypingSet()}
}

// SetRoom switches the view to a new room, clearing the live buffer and
// typing set. It returns the previous room name so the caller can emit
// leave-room for it.
func (v *View) SetRoom(room string) (previous string) {
	v.mu.Lock()
	previous = v.room
	v.room = room
	v.live = nil
	v.mu.Unlock()

	v.Typing.Reset()
	return previous
}

func (v *View) Room() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.room
}

// AddLive buffers a message received over the socket.
func (v *View) AddLive(msg types.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = append(v.live, msg)
}

// Messages reconciles the given history pages with the live buffer.
func (v *View) Messages(history []types.Message) []types.Message {
	v.mu.Lock()
	live := make([]types.Message, len(v.live))
	copy(live, v.live)
	v.mu.Unlock()

	return Merge(history, live)
}
