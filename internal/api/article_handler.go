package api

import (
	"net/http"
	"strconv"

	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/service"
	"github.com/blog-content-api/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles articles, comments and likes
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// List handles GET /v1/articles?q=&category=&page=&per_page=
func (h *ArticleHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	result, err := h.services.Content.ListPublic(c.Request.Context(), c.Query("q"), c.Query("category"), page, perPage)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Popular handles GET /v1/articles/popular
func (h *ArticleHandler) Popular(c *gin.Context) {
	articles, err := h.services.Content.Popular(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Categories handles GET /v1/categories
func (h *ArticleHandler) Categories(c *gin.Context) {
	categories, err := h.services.Content.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Create handles POST /v1/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var req models.CreateArticleRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	article, err := h.services.Content.CreateArticle(c.Request.Context(), viewerID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, article)
}

// Get handles GET /v1/articles/:id?password=
// A denial answers with the teaser and the remediation to offer.
func (h *ArticleHandler) Get(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	view, err := h.services.Content.ViewArticle(c.Request.Context(), id, viewerID(c), c.Query("password"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if denial := view.Decision.Err(); denial != nil {
		c.JSON(statusFor(denial), gin.H{
			"error":       denial.Error(),
			"code":        view.Decision,
			"remediation": view.Remediation,
			"article":     view.Teaser,
		})
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListComments handles GET /v1/articles/:id/comments?view=roots|thread
func (h *ArticleHandler) ListComments(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	view := models.CommentView(c.DefaultQuery("view", string(models.CommentViewRoots)))
	if view != models.CommentViewRoots && view != models.CommentViewThread {
		badRequest(c, "view must be one of: roots, thread")
		return
	}

	comments, err := h.services.Content.ListComments(c.Request.Context(), id, viewerID(c), c.Query("password"), view)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments, "view": view})
}

// AddComment handles POST /v1/articles/:id/comments
func (h *ArticleHandler) AddComment(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	var req models.AddCommentRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	comment, err := h.services.Content.AddComment(c.Request.Context(), id, viewerID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ToggleLike handles POST /v1/articles/:id/like
func (h *ArticleHandler) ToggleLike(c *gin.Context) {
	id, ok := articleID(c)
	if !ok {
		return
	}

	result, err := h.services.Content.ToggleLike(c.Request.Context(), viewerID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// articleID reads the :id parameter. Malformed IDs cannot name an article,
// so they answer 404.
func articleID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !validation.IsValidID(id) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": models.ErrArticleNotFound.Message,
			"code":  models.ErrArticleNotFound.Code,
		})
		return "", false
	}
	return id, true
}
