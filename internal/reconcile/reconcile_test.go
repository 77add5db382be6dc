package reconcile

import (
	"testing"
	"time"

	"github.com/jordankell/go-messenger/internal/types"
	"github.com/stretchr/testify/assert"
)

func msg(id string, offset int, content string) types.Message {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return types.Message{
		Id:        id,
		Content:   content,
		CreatedAt: base.Add(time.Duration(offset) * time.Second),
	}
}

func ids(messages []types.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Id)
	}
	return out
}

func TestMerge(t *testing.T) {
	tcases := []struct {
		name     string
		history  []types.Message
		live     []types.Message
		expected []string
	}{
		{
			name:     "empty inputs",
			expected: []string{},
		},
		{
			name:     "history only",
			history:  []types.Message{msg("m2", 2, "b"), msg("m1", 1, "a")},
			expected: []string{"m1", "m2"},
		},
		{
			name:     "live only",
			live:     []types.Message{msg("m1", 1, "a")},
			expected: []string{"m1"},
		},
		{
			name:     "interleaved by timestamp",
			history:  []types.Message{msg("m3", 3, "c"), msg("m1", 1, "a")},
			live:     []types.Message{msg("m2", 2, "b"), msg("m4", 4, "d")},
			expected: []string{"m1", "m2", "m3", "m4"},
		},
		{
			name:     "duplicate ids collapse",
			history:  []types.Message{msg("m1", 1, "a"), msg("m2", 2, "b")},
			live:     []types.Message{msg("m2", 2, "b"), msg("m3", 3, "c")},
			expected: []string{"m1", "m2", "m3"},
		},
		{
			name:     "equal timestamps break ties by id",
			history:  []types.Message{msg("m2", 1, "b"), msg("m1", 1, "a")},
			expected: []string{"m1", "m2"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			merged := Merge(tc.history, tc.live)
			assert.Equal(t, tc.expected, ids(merged))
		})
	}
}

// The live copy of a duplicated message wins over the history copy.
func TestMergeLastOccurrenceWins(t *testing.T) {
	stale := msg("m1", 1, "sending...")
	fresh := msg("m1", 1, "sent")

	merged := Merge([]types.Message{stale}, []types.Message{fresh})
	if assert.Len(t, merged, 1) {
		assert.Equal(t, "sent", merged[0].Content)
	}
}

func TestMergeIdempotent(t *testing.T) {
	history := []types.Message{msg("m1", 1, "a"), msg("m3", 3, "c")}
	live := []types.Message{msg("m2", 2, "b"), msg("m3", 3, "c")}

	once := Merge(history, live)
	twice := Merge(once, live)
	assert.Equal(t, once, twice, "expected merging the same inputs again to be a no-op")
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	history := []types.Message{msg("m2", 2, "b"), msg("m1", 1, "a")}

	Merge(history, nil)
	assert.Equal(t, "m2", history[0].Id, "expected input slice order to be untouched")
}

func TestTypingSet(t *testing.T) {
	ts := NewTypingSet()
	assert.Equal(t, 0, ts.Len())

	ts.Add("u1")
	ts.Add("u2")
	ts.Add("u1") // duplicate add is a no-op
	assert.Equal(t, 2, ts.Len())
	assert.Equal(t, []string{"u1", "u2"}, ts.Users())

	ts.Remove("u1")
	assert.Equal(t, []string{"u2"}, ts.Users())

	ts.Remove("missing")
	assert.Equal(t, 1, ts.Len(), "expected removing an absent user to be a no-op")

	ts.Reset()
	assert.Equal(t, 0, ts.Len())
}

func TestViewSetRoomClearsState(t *testing.T) {
	v := NewView()

	prev := v.SetRoom("conversation-c1")
	assert.Equal(t, "", prev, "expected no previous room on first switch")

	v.AddLive(msg("m1", 1, "a"))
	v.Typing.Add("u2")

	prev = v.SetRoom("conversation-c2")
	assert.Equal(t, "conversation-c1", prev)
	assert.Equal(t, "conversation-c2", v.Room())
	assert.Empty(t, v.Messages(nil), "expected live buffer to be cleared on room switch")
	assert.Equal(t, 0, v.Typing.Len(), "expected typing set to be cleared on room switch")
}

func TestViewMessages(t *testing.T) {
	v := NewView()
	v.SetRoom("conversation-c1")

	v.AddLive(msg("m2", 2, "b"))
	v.AddLive(msg("m3", 3, "c"))

	history := []types.Message{msg("m1", 1, "a"), msg("m2", 2, "b")}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(v.Messages(history)))
}
