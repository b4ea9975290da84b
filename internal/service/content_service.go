package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blog-content-api/internal/gate"
	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/repository"
	"github.com/blog-content-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contentService is the concrete implementation of ContentService
type contentService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

// newContentService creates a new ContentService
func newContentService(repos *repository.Repositories, validator *validation.Validator, log zerolog.Logger) *contentService {
	return &contentService{
		repos:     repos,
		validator: validator,
		log:       log.With().Str("service", "content").Logger(),
	}
}

// CreateArticle stores a new article owned by authorID
func (s *contentService) CreateArticle(ctx context.Context, authorID string, req *models.CreateArticleRequest) (*models.Article, error) {
	if errs := s.validator.ValidateArticle(req); len(errs) > 0 {
		return nil, models.NewValidationError(errs)
	}

	author, err := s.repos.User.GetByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	if author == nil {
		return nil, models.ErrUserNotFound
	}

	now := time.Now()
	article := &models.Article{
		ID:         uuid.New().String(),
		Title:      strings.TrimSpace(req.Title),
		Body:       req.Body,
		Summary:    strings.TrimSpace(req.Summary),
		Category:   strings.TrimSpace(req.Category),
		Tags:       validation.ParseTags(req.Tags),
		AuthorID:   authorID,
		AuthorName: author.Username,
		IsPrivate:  req.IsPrivate,
		RequireVIP: req.RequireVIP,
		Password:   req.Password,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	article.HasPassword = article.Password != ""

	if err := s.repos.Article.Create(ctx, article); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("article_id", article.ID).
		Str("author_id", authorID).
		Bool("private", article.IsPrivate).
		Msg("Article created")
	return article, nil
}

// ViewArticle runs the access gate and, on Allow, records exactly one view
// and gathers the like state and root comments.
func (s *contentService) ViewArticle(ctx context.Context, articleID, viewerID, password string) (*ArticleView, error) {
	article, requester, err := s.loadGated(ctx, articleID, viewerID)
	if err != nil {
		return nil, err
	}

	decision := gate.Evaluate(article, requester, password)
	view := &ArticleView{Decision: decision, Remediation: decision.Remediation()}
	if !decision.Allowed() {
		view.Teaser = gate.Teaser(article, decision)
		return view, nil
	}

	count, err := s.repos.Article.IncrementViewCount(ctx, articleID)
	if err != nil {
		return nil, err
	}
	article.ViewCount = count

	if view.LikeCount, err = s.repos.Like.Count(ctx, articleID); err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	if requester.Authenticated() {
		if view.Liked, err = s.repos.Like.Exists(ctx, requester.UserID, articleID); err != nil {
			return nil, fmt.Errorf("failed to check like: %w", err)
		}
	}
	if view.Comments, err = s.repos.Comment.ListRoots(ctx, articleID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	article.Password = ""
	view.Article = article
	return view, nil
}

// ListComments applies the access gate without recording a view
func (s *contentService) ListComments(ctx context.Context, articleID, viewerID, password string, view models.CommentView) ([]*models.Comment, error) {
	article, requester, err := s.loadGated(ctx, articleID, viewerID)
	if err != nil {
		return nil, err
	}
	if err := gate.Evaluate(article, requester, password).Err(); err != nil {
		return nil, err
	}

	if view == models.CommentViewThread {
		all, err := s.repos.Comment.ListByArticle(ctx, articleID)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}
		return buildThread(all), nil
	}

	roots, err := s.repos.Comment.ListRoots(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return roots, nil
}

// loadGated fetches the article and resolves the viewer. The VIP flag is
// read from the store on every call so a fresh purchase applies at once.
func (s *contentService) loadGated(ctx context.Context, articleID, viewerID string) (*models.Article, gate.Requester, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, gate.Anonymous, fmt.Errorf("failed to load article: %w", err)
	}
	if article == nil {
		return nil, gate.Anonymous, models.ErrArticleNotFound
	}

	if viewerID == "" {
		return article, gate.Anonymous, nil
	}
	viewer, err := s.repos.User.GetByID(ctx, viewerID)
	if err != nil {
		return nil, gate.Anonymous, fmt.Errorf("failed to load viewer: %w", err)
	}
	return article, gate.RequesterFor(viewer), nil
}

// buildThread nests replies under their parents. Roots keep the store's
// newest-first order; replies read oldest first.
func buildThread(all []*models.Comment) []*models.Comment {
	byID := make(map[string]*models.Comment, len(all))
	for _, c := range all {
		c.Replies = nil
		byID[c.ID] = c
	}

	roots := []*models.Comment{}
	for _, c := range all {
		if c.IsRoot() {
			roots = append(roots, c)
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}

	for _, c := range all {
		sort.Slice(c.Replies, func(i, j int) bool {
			a, b := c.Replies[i], c.Replies[j]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	}
	return roots
}

// AddComment attaches a comment, optionally as a reply on the same article
func (s *contentService) AddComment(ctx context.Context, articleID, userID string, req *models.AddCommentRequest) (*models.Comment, error) {
	body, err := s.validator.NormalizeComment(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.repos.Article.Exists(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check article: %w", err)
	}
	if !exists {
		return nil, models.ErrArticleNotFound
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		ArticleID: articleID,
		UserID:    userID,
		Body:      body,
		CreatedAt: time.Now(),
	}

	if req.ParentID != "" {
		parent, err := s.repos.Comment.GetByID(ctx, req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		if parent == nil || parent.ArticleID != articleID {
			return nil, models.ErrParentNotFound
		}
		parentID := parent.ID
		comment.ParentID = &parentID
	}

	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		return nil, err
	}
	if author, err := s.repos.User.GetByID(ctx, userID); err == nil && author != nil {
		comment.AuthorName = author.Username
	}

	s.log.Debug().Str("comment_id", comment.ID).Str("article_id", articleID).Msg("Comment added")
	return comment, nil
}

// ToggleLike flips the user's like on the article
func (s *contentService) ToggleLike(ctx context.Context, userID, articleID string) (*models.LikeResult, error) {
	liked, count, err := s.repos.Like.Toggle(ctx, userID, articleID)
	if err != nil {
		return nil, err
	}

	action := models.LikeActionUnliked
	if liked {
		action = models.LikeActionLiked
	}
	return &models.LikeResult{Action: action, LikeCount: count}, nil
}

// LikeCount returns the number of likes on an article
func (s *contentService) LikeCount(ctx context.Context, articleID string) (int, error) {
	return s.repos.Like.Count(ctx, articleID)
}

// HasLiked reports whether the user likes the article
func (s *contentService) HasLiked(ctx context.Context, userID, articleID string) (bool, error) {
	return s.repos.Like.Exists(ctx, userID, articleID)
}

// ListPublic returns one page of public article teasers
func (s *contentService) ListPublic(ctx context.Context, keyword, category string, page, perPage int) (*models.ArticlePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = models.DefaultPerPage
	}
	if perPage > models.MaxPerPage {
		perPage = models.MaxPerPage
	}

	articles, total, err := s.repos.Article.ListPublic(ctx, models.ArticleFilter{
		Keyword:  strings.TrimSpace(keyword),
		Category: strings.TrimSpace(category),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	return &models.ArticlePage{
		Articles: teasers(articles),
		Page:     page,
		PerPage:  perPage,
		Total:    total,
	}, nil
}

// Popular returns the most viewed public articles
func (s *contentService) Popular(ctx context.Context) ([]*models.Article, error) {
	articles, err := s.repos.Article.Popular(ctx, models.PopularLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list popular articles: %w", err)
	}
	return teasers(articles), nil
}

// Categories counts public articles per category
func (s *contentService) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	counts, err := s.repos.Article.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	if counts == nil {
		counts = []models.CategoryCount{}
	}
	return counts, nil
}

// Counts returns totals for the metrics endpoint
func (s *contentService) Counts(ctx context.Context) (*models.Counts, error) {
	var counts models.Counts
	var err error

	if counts.Users, err = s.repos.User.Count(ctx); err != nil {
		return nil, err
	}
	if counts.Articles, err = s.repos.Article.Count(ctx); err != nil {
		return nil, err
	}
	if counts.Comments, err = s.repos.Comment.Count(ctx); err != nil {
		return nil, err
	}
	return &counts, nil
}

func teasers(articles []*models.Article) []*models.Article {
	out := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Teaser())
	}
	return out
}
