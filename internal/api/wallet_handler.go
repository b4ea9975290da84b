package api

import (
	"net/http"
	"strconv"

	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultLedgerLimit = 50

// WalletHandler handles wallet endpoints
type WalletHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(services *service.Services, log zerolog.Logger) *WalletHandler {
	return &WalletHandler{
		services: services,
		log:      log.With().Str("handler", "wallet").Logger(),
	}
}

// Get handles GET /v1/wallet
func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.services.Wallet.GetWallet(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, wallet)
}

// TopUp handles POST /v1/wallet/topup
func (h *WalletHandler) TopUp(c *gin.Context) {
	var req models.TopUpRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "amount must be a whole number")
		return
	}

	entry, err := h.services.Wallet.TopUp(c.Request.Context(), viewerID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// PurchaseVIP handles POST /v1/wallet/vip
func (h *WalletHandler) PurchaseVIP(c *gin.Context) {
	entry, err := h.services.Wallet.PurchaseVIP(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Ledger handles GET /v1/wallet/ledger. Without a format it returns the
// most recent entries; with ?format=json|ndjson|csv it streams the full
// ledger as a download.
func (h *WalletHandler) Ledger(c *gin.Context) {
	ctx := c.Request.Context()
	userID := viewerID(c)

	format := c.Query("format")
	if format == "" {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLedgerLimit)))
		if err != nil || limit < 1 {
			limit = defaultLedgerLimit
		}
		entries, err := h.services.Wallet.Ledger(ctx, userID, limit)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
		return
	}

	if !models.ValidExportFormats[format] {
		badRequest(c, "format must be one of: ndjson, json, csv")
		return
	}

	if err := h.services.Wallet.StreamLedger(ctx, c.Writer, userID, format); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Ledger export failed")
		// Can't return error JSON after streaming has started
		return
	}
}
