package discuss

import (
	"slices"
)

// LegacyTreeDepth materialises top-level comments and their direct replies only.
const LegacyTreeDepth = 2

// TreeBuilder assembles the flat comment store into a forest for one article.
// Top-level comments come newest first, replies oldest first.
// MaxDepth limits the number of materialised levels; zero means unlimited.
type TreeBuilder struct {
	MaxDepth int
}

func (b TreeBuilder) Build(comments []*Comment, articleID string) []*CommentNode {
	roots := make([]*Comment, 0)
	children := make(map[string][]*Comment)

	for _, comment := range comments {
		if comment.ArticleID != articleID {
			continue
		}

		if comment.ParentID == nil {
			roots = append(roots, comment)

			continue
		}

		children[*comment.ParentID] = append(children[*comment.ParentID], comment)
	}

	for parentID := range children {
		slices.SortStableFunc(children[parentID], oldestFirst)
	}

	slices.SortStableFunc(roots, newestFirst)

	result := make([]*CommentNode, 0, len(roots))

	for _, root := range roots {
		result = append(result, b.attach(root, children, 1))
	}

	return result
}

func (b TreeBuilder) attach(comment *Comment, children map[string][]*Comment, level int) *CommentNode {
	node := &CommentNode{
		Comment: *comment,
		Replies: make([]*CommentNode, 0),
	}

	if b.MaxDepth > 0 && level >= b.MaxDepth {
		return node
	}

	for _, child := range children[comment.ID] {
		node.Replies = append(node.Replies, b.attach(child, children, level+1))
	}

	return node
}

func oldestFirst(a, b *Comment) int {
	return a.CreatedAt.Compare(b.CreatedAt)
}

func newestFirst(a, b *Comment) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}
