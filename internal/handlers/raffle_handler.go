package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/raffle-ledger-backend/internal/middleware"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/services"
)

// RaffleHandler handles raffle-related HTTP requests
type RaffleHandler struct {
	raffleService services.RaffleService
}

// NewRaffleHandler creates a new RaffleHandler
func NewRaffleHandler(raffleService services.RaffleService) *RaffleHandler {
	return &RaffleHandler{raffleService: raffleService}
}

// CreateRaffle handles POST /raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var req models.CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	raffle, err := h.raffleService.CreateRaffle(c.Request.Context(), middleware.WalletAddress(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

// ListRaffles handles GET /raffles
func (h *RaffleHandler) ListRaffles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"raffles": h.raffleService.ListRaffles(c.Request.Context())})
}

// GetRaffle handles GET /raffles/:address
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	raffle, err := h.raffleService.GetRaffle(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// ListCreated handles GET /raffles/created
func (h *RaffleHandler) ListCreated(c *gin.Context) {
	h.listFor(c, h.raffleService.ListCreated)
}

// ListPurchased handles GET /raffles/purchased
func (h *RaffleHandler) ListPurchased(c *gin.Context) {
	h.listFor(c, h.raffleService.ListPurchased)
}

// ListOpen handles GET /raffles/open
func (h *RaffleHandler) ListOpen(c *gin.Context) {
	h.listFor(c, h.raffleService.ListOpen)
}

func (h *RaffleHandler) listFor(c *gin.Context, list func(ctx context.Context, account string) ([]*models.Raffle, error)) {
	raffles, err := list(c.Request.Context(), middleware.WalletAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffles": raffles})
}

// AvailableTickets handles GET /raffles/:address/available
func (h *RaffleHandler) AvailableTickets(c *gin.Context) {
	tickets, err := h.raffleService.AvailableTickets(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// TicketOwner handles GET /raffles/:address/tickets/:number
func (h *RaffleHandler) TicketOwner(c *gin.Context) {
	number, err := strconv.ParseUint(c.Param("number"), 10, 64)
	if err != nil {
		badRequest(c, "ticket number must be a non-negative integer")
		return
	}
	owner, err := h.raffleService.TicketOwner(c.Request.Context(), c.Param("address"), number)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

// MyTickets handles GET /raffles/:address/my-tickets
func (h *RaffleHandler) MyTickets(c *gin.Context) {
	tickets, err := h.raffleService.MyTickets(c.Request.Context(), c.Param("address"), middleware.WalletAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// BuyTicket handles POST /raffles/:address/tickets
func (h *RaffleHandler) BuyTicket(c *gin.Context) {
	var req models.BuyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	raffle, err := h.raffleService.BuyTicket(c.Request.Context(), c.Param("address"), middleware.WalletAddress(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// SetWinningTicket handles POST /raffles/:address/winner
func (h *RaffleHandler) SetWinningTicket(c *gin.Context) {
	var req models.WinningTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	raffle, err := h.raffleService.SetWinningTicket(c.Request.Context(), c.Param("address"), middleware.WalletAddress(c), req.TicketNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

// DrawWinner handles POST /raffles/:address/draw
func (h *RaffleHandler) DrawWinner(c *gin.Context) {
	raffle, err := h.raffleService.DrawWinner(c.Request.Context(), c.Param("address"), middleware.WalletAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}
