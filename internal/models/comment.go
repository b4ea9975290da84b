package models

import (
	"time"
)

// Comment represents a comment on an article
type Comment struct {
	ID         string     `json:"id" db:"id"`
	ArticleID  string     `json:"article_id" db:"article_id"`
	UserID     string     `json:"user_id" db:"user_id"`
	AuthorName string     `json:"author_name,omitempty" db:"-"`
	ParentID   *string    `json:"parent_id,omitempty" db:"parent_id"`
	Body       string     `json:"body" db:"body"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	Replies    []*Comment `json:"replies,omitempty" db:"-"`
}

// IsRoot reports whether the comment is anchored directly to the article
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// AddCommentRequest is the comment form
type AddCommentRequest struct {
	Body     string `json:"body" form:"body"`
	ParentID string `json:"parent_id" form:"parent_id"`
}

// CommentView selects how comments are returned
type CommentView string

const (
	// CommentViewRoots returns only root comments, newest first
	CommentViewRoots CommentView = "roots"
	// CommentViewThread returns root comments with their replies nested
	CommentViewThread CommentView = "thread"
)

// MaxCommentWords is the maximum allowed words in a comment body
const MaxCommentWords = 500

// Like is a user's like on an article; existence is the liked state
type Like struct {
	UserID    string    `json:"user_id" db:"user_id"`
	ArticleID string    `json:"article_id" db:"article_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LikeAction is the outcome of a toggle
type LikeAction string

const (
	LikeActionLiked   LikeAction = "liked"
	LikeActionUnliked LikeAction = "unliked"
)

// LikeResult is returned by a like toggle
type LikeResult struct {
	Action    LikeAction `json:"action"`
	LikeCount int        `json:"like_count"`
}
