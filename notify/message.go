// Package notify turns domain events into short user facing messages.
package notify

import (
	"sync"
	"time"
)

type Message struct {
	Title       string
	Description string
	CreatedAt   time.Time
}

func MessageForComment(isReply bool) Message {
	description := "Your comment was published"
	if isReply {
		description = "Your reply was published"
	}

	return Message{Title: "Comment added", Description: description}
}

func MessageArticleCreated(title string) Message {
	return Message{Title: "Article created", Description: "\"" + title + "\" is now live"}
}

func MessageArticleUpdated(title string) Message {
	return Message{Title: "Article updated", Description: "Changes to \"" + title + "\" were saved"}
}

func MessageArticleDeleted() Message {
	return Message{Title: "Article deleted", Description: "The article and its comments were removed"}
}

const DefaultFeedSize = 20

// Feed keeps the most recent messages, newest first.
type Feed struct {
	mu    sync.RWMutex
	size  int
	items []Message
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}

	return &Feed{
		size:  size,
		items: make([]Message, 0, size),
	}
}

func (f *Feed) Push(msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append([]Message{msg}, f.items...)
	if len(f.items) > f.size {
		f.items = f.items[:f.size]
	}
}

func (f *Feed) Items() []Message {
	f.mu.RLock()
	defer f.mu.RUnlock()

	items := make([]Message, len(f.items))
	copy(items, f.items)

	return items
}
