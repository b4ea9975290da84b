package api

import (
	"fmt"
	"net/http"

	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/service"
	"github.com/blog-content-api/internal/upload"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// UserHandler handles profile and avatar endpoints
type UserHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "user").Logger(),
	}
}

// Profile handles GET /v1/users/:username
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.services.Identity.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// SetAvatar handles PUT /v1/users/me/avatar with a plain reference
func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req struct {
		Avatar string `json:"avatar" form:"avatar"`
	}
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.services.Identity.SetAvatar(c.Request.Context(), viewerID(c), req.Avatar)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UploadAvatar handles POST /v1/users/me/avatar (multipart "file")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "file upload is required")
		return
	}
	defer file.Close()

	// Validate file size
	if header.Size > h.cfg.Upload.MaxAvatarSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d KB", h.cfg.Upload.MaxAvatarSize/1024),
			"code":  upload.ErrFileTooLarge.Code,
		})
		return
	}

	user, err := h.services.Identity.UploadAvatar(c.Request.Context(), viewerID(c), header.Filename, file)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Str("user_id", user.ID).Int64("size", header.Size).Msg("Avatar uploaded")
	c.JSON(http.StatusOK, user)
}
