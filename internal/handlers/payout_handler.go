package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/raffle-ledger-backend/internal/middleware"
	"github.com/ArowuTest/raffle-ledger-backend/internal/services"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
)

// PayoutHandler serves winner payouts
type PayoutHandler struct {
	payoutService services.PayoutService
}

func NewPayoutHandler(payoutService services.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// MyPayouts handles GET /payouts/me
func (h *PayoutHandler) MyPayouts(c *gin.Context) {
	page, limit := utils.ParsePage(c.Query("page"), c.Query("limit"))
	payouts, err := h.payoutService.ListByRecipient(c.Request.Context(), middleware.WalletAddress(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts, "page": page, "limit": limit})
}

// RafflePayout handles GET /raffles/:address/payout
func (h *PayoutHandler) RafflePayout(c *gin.Context) {
	payout, err := h.payoutService.ForRaffle(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payout)
}
