package discuss

import (
	"sync"
)

// MaxReplyDepth is the depth from which nodes no longer offer a reply action.
// Top-level comments have depth 0.
const MaxReplyDepth = 3

// Thread is a locally held comment forest of one article, as a presentation layer caches it.
type Thread struct {
	mu        sync.RWMutex
	articleID string
	nodes     []*CommentNode
}

func NewThread(articleID string, nodes []*CommentNode) *Thread {
	return &Thread{
		articleID: articleID,
		nodes:     nodes,
	}
}

func (t *Thread) ArticleID() string {
	return t.articleID
}

// Insert places a newly created comment into the local forest.
// Top-level comments are prepended; replies are appended to the end of their parent's replies.
// It returns false when the comment belongs elsewhere or its parent is not part of the forest.
func (t *Thread) Insert(comment *Comment) bool {
	if comment.ArticleID != t.articleID {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	node := &CommentNode{Comment: *comment, Replies: make([]*CommentNode, 0)}

	if !comment.IsReply() {
		t.nodes = append([]*CommentNode{node}, t.nodes...)

		return true
	}

	parent, _ := findNode(t.nodes, *comment.ParentID, 0)
	if parent == nil {
		return false
	}

	parent.Replies = append(parent.Replies, node)

	return true
}

// Depth returns the depth of the comment in the forest.
func (t *Thread) Depth(commentID string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, depth := findNode(t.nodes, commentID, 0)
	if node == nil {
		return 0, false
	}

	return depth, true
}

// CanReply reports whether the comment exposes a reply action.
func (t *Thread) CanReply(commentID string) bool {
	depth, ok := t.Depth(commentID)

	return ok && depth < MaxReplyDepth
}

func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return countNodes(t.nodes)
}

type ThreadView struct {
	Comment

	Depth    int
	CanReply bool
	Replying bool
	Replies  []*ThreadView
}

// View renders the forest into a detached tree of views.
// replyingTo names the single node whose reply composer is open, if any.
func (t *Thread) View(replyingTo string) []*ThreadView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return RenderNodes(t.nodes, replyingTo)
}

func RenderNodes(nodes []*CommentNode, replyingTo string) []*ThreadView {
	return renderNodes(nodes, 0, replyingTo)
}

func renderNodes(nodes []*CommentNode, depth int, replyingTo string) []*ThreadView {
	views := make([]*ThreadView, 0, len(nodes))

	for _, node := range nodes {
		canReply := depth < MaxReplyDepth

		views = append(views, &ThreadView{
			Comment:  node.Comment,
			Depth:    depth,
			CanReply: canReply,
			Replying: canReply && replyingTo != "" && node.ID == replyingTo,
			Replies:  renderNodes(node.Replies, depth+1, replyingTo),
		})
	}

	return views
}

func findNode(nodes []*CommentNode, id string, depth int) (*CommentNode, int) {
	for _, node := range nodes {
		if node.ID == id {
			return node, depth
		}

		found, foundDepth := findNode(node.Replies, id, depth+1)
		if found != nil {
			return found, foundDepth
		}
	}

	return nil, 0
}

func countNodes(nodes []*CommentNode) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Replies)
	}

	return n
}
