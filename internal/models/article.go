package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Article represents an article in the system
type Article struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body,omitempty" db:"body"`
	Summary     string    `json:"summary,omitempty" db:"summary"`
	Category    string    `json:"category,omitempty" db:"category"`
	Tags        []string  `json:"tags" db:"-"` // Stored as JSON string in DB
	TagsJSON    string    `json:"-" db:"tags"` // For DB storage
	AuthorID    string    `json:"author_id" db:"author_id"`
	AuthorName  string    `json:"author_name,omitempty" db:"-"`
	IsPrivate   bool      `json:"is_private" db:"is_private"`
	RequireVIP  bool      `json:"require_vip" db:"require_vip"`
	Password    string    `json:"-" db:"password"`
	HasPassword bool      `json:"has_password" db:"-"`
	ViewCount   int64     `json:"view_count" db:"view_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Visibility holds the gating attributes of an article
type Visibility struct {
	IsPrivate  bool   `json:"is_private" form:"is_private"`
	RequireVIP bool   `json:"require_vip" form:"require_vip"`
	Password   string `json:"password" form:"password"`
}

// Teaser returns the article without its body, for listings
func (a *Article) Teaser() *Article {
	t := *a
	t.Body = ""
	t.Password = ""
	t.HasPassword = a.Password != ""
	return &t
}

// ArticleTeaser is what a denied requester may see of a private article.
// RequireVIP and HasPassword are only set once the requester has cleared the
// gates before them.
type ArticleTeaser struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name,omitempty"`
	IsPrivate   bool   `json:"is_private"`
	RequireVIP  bool   `json:"require_vip,omitempty"`
	HasPassword bool   `json:"has_password,omitempty"`
}

// CreateArticleRequest is the authoring form
type CreateArticleRequest struct {
	Title    string   `json:"title" form:"title"`
	Body     string   `json:"body" form:"body"`
	Summary  string   `json:"summary" form:"summary"`
	Category string   `json:"category" form:"category"`
	Tags     TagInput `json:"tags" form:"tags"`
	Visibility
}

// TagInput accepts tags as a JSON list or a single comma-separated string
type TagInput []string

func (t *TagInput) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = strings.Split(s, ",")
	return nil
}

// ArticleFilter narrows public article listings
type ArticleFilter struct {
	Keyword  string
	Category string
	AuthorID string
	Limit    int
	Offset   int
}

// CategoryCount is the number of public articles in a category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ArticlePage is one page of a public listing
type ArticlePage struct {
	Articles []*Article `json:"articles"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
	Total    int        `json:"total"`
}

// Listing defaults
const (
	DefaultPerPage   = 10
	MaxPerPage       = 50
	PopularLimit     = 5
	ProfileArticles  = 10
	MaxTitleLength   = 200
	MaxSummaryLength = 500
)
