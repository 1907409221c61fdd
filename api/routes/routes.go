package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/raffle-ledger-backend/internal/config"
	"github.com/ArowuTest/raffle-ledger-backend/internal/handlers"
	"github.com/ArowuTest/raffle-ledger-backend/internal/middleware"
	pkgjwt "github.com/ArowuTest/raffle-ledger-backend/pkg/jwt"
)

// HandlerDependencies holds everything the router needs
type HandlerDependencies struct {
	Tokens        *pkgjwt.TokenService
	AuthHandler   *handlers.AuthHandler
	RaffleHandler *handlers.RaffleHandler
	EventHandler  *handlers.EventHandler
	PayoutHandler *handlers.PayoutHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/nonce", deps.AuthHandler.RequestNonce)
			auth.POST("/login", deps.AuthHandler.Login)
		}

		raffles := public.Group("/raffles")
		{
			raffles.GET("", deps.RaffleHandler.ListRaffles)
			raffles.GET("/:address", deps.RaffleHandler.GetRaffle)
			raffles.GET("/:address/available", deps.RaffleHandler.AvailableTickets)
			raffles.GET("/:address/tickets/:number", deps.RaffleHandler.TicketOwner)
			raffles.GET("/:address/events", deps.EventHandler.RaffleEvents)
			raffles.GET("/:address/payout", deps.PayoutHandler.RafflePayout)
		}

		public.GET("/events", deps.EventHandler.ListEvents)
		public.GET("/events/ws", deps.EventHandler.Stream)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.Tokens))
	{
		raffles := protected.Group("/raffles")
		{
			raffles.POST("", deps.RaffleHandler.CreateRaffle)
			raffles.GET("/created", deps.RaffleHandler.ListCreated)
			raffles.GET("/purchased", deps.RaffleHandler.ListPurchased)
			raffles.GET("/open", deps.RaffleHandler.ListOpen)
			raffles.GET("/:address/my-tickets", deps.RaffleHandler.MyTickets)
			raffles.POST("/:address/tickets", deps.RaffleHandler.BuyTicket)
			raffles.POST("/:address/winner", deps.RaffleHandler.SetWinningTicket)
			raffles.POST("/:address/draw", deps.RaffleHandler.DrawWinner)
		}

		protected.GET("/payouts/me", deps.PayoutHandler.MyPayouts)
	}

	return router
}
