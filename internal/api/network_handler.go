package api

import (
	"net/http"

	"github.com/blog-content-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NetworkHandler serves the network monitor
type NetworkHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewNetworkHandler creates a new NetworkHandler
func NewNetworkHandler(services *service.Services, log zerolog.Logger) *NetworkHandler {
	return &NetworkHandler{
		services: services,
		log:      log.With().Str("handler", "network").Logger(),
	}
}

// Current handles GET /v1/network/current
func (h *NetworkHandler) Current(c *gin.Context) {
	snapshot, err := h.services.Stats.Current(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// History handles GET /v1/network/stats
func (h *NetworkHandler) History(c *gin.Context) {
	samples, err := h.services.Stats.History(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"samples": samples})
}
