package discuss_test

import (
	"testing"

	"github.com/nasermirzaei89/gazette/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainThread(t *testing.T, length int) (*discuss.Thread, []*discuss.Comment) {
	t.Helper()

	comments := make([]*discuss.Comment, 0, length)
	parentID := ""

	for i := range length {
		c := newComment("d"+string(rune('0'+i)), "a1", parentID, i)
		comments = append(comments, c)
		parentID = c.ID
	}

	nodes := discuss.TreeBuilder{}.Build(comments, "a1")

	return discuss.NewThread("a1", nodes), comments
}

func TestThread_Insert(t *testing.T) {
	t.Parallel()

	nodes := discuss.TreeBuilder{}.Build([]*discuss.Comment{
		newComment("r1", "a1", "", 0),
		newComment("c1", "a1", "r1", 1),
		newComment("c2", "a1", "r1", 2),
	}, "a1")

	thread := discuss.NewThread("a1", nodes)

	t.Run("reply appended to deep parent", func(t *testing.T) {
		ok := thread.Insert(newComment("g1", "a1", "c1", 0))
		require.True(t, ok)

		depth, found := thread.Depth("g1")
		require.True(t, found)
		assert.Equal(t, 2, depth)
	})

	t.Run("reply appended at the end without resorting", func(t *testing.T) {
		ok := thread.Insert(newComment("c3", "a1", "r1", -10))
		require.True(t, ok)

		views := thread.View("")
		require.Len(t, views, 1)

		replies := make([]string, 0)
		for _, view := range views[0].Replies {
			replies = append(replies, view.ID)
		}

		assert.Equal(t, []string{"c1", "c2", "c3"}, replies)
	})

	t.Run("top level prepended", func(t *testing.T) {
		ok := thread.Insert(newComment("r0", "a1", "", -100))
		require.True(t, ok)

		views := thread.View("")
		require.Len(t, views, 2)
		assert.Equal(t, "r0", views[0].ID)
	})

	t.Run("unknown parent rejected", func(t *testing.T) {
		ok := thread.Insert(newComment("x1", "a1", "missing", 0))
		assert.False(t, ok)
	})

	t.Run("other article rejected", func(t *testing.T) {
		ok := thread.Insert(newComment("x2", "a2", "", 0))
		assert.False(t, ok)
	})

	assert.Equal(t, 6, thread.Len())
}

func TestThread_ReplyDepth(t *testing.T) {
	t.Parallel()

	thread, comments := chainThread(t, 5)

	tests := []struct {
		index    int
		depth    int
		canReply bool
	}{
		{index: 0, depth: 0, canReply: true},
		{index: 1, depth: 1, canReply: true},
		{index: 2, depth: 2, canReply: true},
		{index: 3, depth: 3, canReply: false},
		{index: 4, depth: 4, canReply: false},
	}

	for _, tt := range tests {
		t.Run(comments[tt.index].ID, func(t *testing.T) {
			t.Parallel()

			depth, ok := thread.Depth(comments[tt.index].ID)
			require.True(t, ok)
			assert.Equal(t, tt.depth, depth)
			assert.Equal(t, tt.canReply, thread.CanReply(comments[tt.index].ID))
		})
	}

	t.Run("descendants beyond max depth still render", func(t *testing.T) {
		t.Parallel()

		views := thread.View("")

		node := views[0]
		for range discuss.MaxReplyDepth {
			require.Len(t, node.Replies, 1)
			node = node.Replies[0]
		}

		assert.Equal(t, discuss.MaxReplyDepth, node.Depth)
		assert.False(t, node.CanReply)
		require.Len(t, node.Replies, 1)
		assert.Equal(t, comments[4].ID, node.Replies[0].ID)
		assert.False(t, node.Replies[0].CanReply)
	})

	t.Run("unknown comment", func(t *testing.T) {
		t.Parallel()

		assert.False(t, thread.CanReply("missing"))
	})
}

func TestThread_ViewReplying(t *testing.T) {
	t.Parallel()

	thread, comments := chainThread(t, 5)

	tests := []struct {
		name       string
		replyingTo string
		open       []string
	}{
		{name: "none", replyingTo: "", open: []string{}},
		{name: "root", replyingTo: comments[0].ID, open: []string{comments[0].ID}},
		{name: "depth two", replyingTo: comments[2].ID, open: []string{comments[2].ID}},
		{name: "no affordance", replyingTo: comments[3].ID, open: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.open, replying(thread.View(tt.replyingTo)))
		})
	}
}

func replying(views []*discuss.ThreadView) []string {
	result := make([]string, 0)
	for _, view := range views {
		if view.Replying {
			result = append(result, view.ID)
		}

		result = append(result, replying(view.Replies)...)
	}

	return result
}
