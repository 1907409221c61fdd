package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	"github.com/ArowuTest/raffle-ledger-backend/internal/services"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var statusByKind = map[string]int{
	"InvalidParameters": http.StatusBadRequest,
	"InvalidTicket":     http.StatusBadRequest,
	"IncorrectPayment":  http.StatusBadRequest,
	"InvalidIdentity":   http.StatusBadRequest,
	"NotOrganizer":      http.StatusForbidden,
	"RaffleNotFound":    http.StatusNotFound,
	"TicketAlreadySold": http.StatusConflict,
	"RaffleInactive":    http.StatusConflict,
	"RaffleStillActive": http.StatusConflict,
	"WinnerAlreadySet":  http.StatusConflict,
	"TicketNotSold":     http.StatusConflict,
}

// respondError maps ledger and repository errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	if kind := raffle.Kind(err); kind != "" {
		status, ok := statusByKind[kind]
		if !ok {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: kind})
		return
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error(), Code: "InvalidCredentials"})
	case errors.Is(err, repositories.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NotFound"})
	case errors.Is(err, repositories.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "Conflict"})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "InvalidParameters"})
}
