package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
	pkgjwt "github.com/ArowuTest/raffle-ledger-backend/pkg/jwt"
	"github.com/ArowuTest/raffle-ledger-backend/pkg/wallet"
)

// ErrInvalidCredentials is returned for unknown, expired or mismatched sign-in attempts
var ErrInvalidCredentials = errors.New("invalid credentials")

const nonceLength = 16

type pendingNonce struct {
	nonce     string
	expiresAt time.Time
}

type authService struct {
	tokens   *pkgjwt.TokenService
	nonceTTL time.Duration
	now      func() time.Time

	mu     sync.Mutex
	nonces map[string]pendingNonce
}

// NewAuthService creates a new AuthService implementation
func NewAuthService(tokens *pkgjwt.TokenService, nonceTTL time.Duration) AuthService {
	return &authService{
		tokens:   tokens,
		nonceTTL: nonceTTL,
		now:      time.Now,
		nonces:   make(map[string]pendingNonce),
	}
}

// RequestNonce issues a single-use challenge for the wallet. A new request
// replaces any outstanding challenge for the same address.
func (s *authService) RequestNonce(ctx context.Context, req *models.NonceRequest) (*models.NonceResponse, error) {
	address, err := raffle.ParseIdentity(req.Address)
	if err != nil {
		return nil, err
	}
	nonce, err := utils.GenerateRandomString(nonceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.nonceTTL)

	s.mu.Lock()
	s.pruneLocked(now)
	s.nonces[address.Hex()] = pendingNonce{nonce: nonce, expiresAt: expiresAt}
	s.mu.Unlock()

	return &models.NonceResponse{
		Nonce:     nonce,
		Message:   wallet.LoginMessage(address, nonce),
		ExpiresAt: expiresAt,
	}, nil
}

// Login handles wallet sign-in
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	address, err := raffle.ParseIdentity(req.Address)
	if err != nil {
		return nil, err
	}
	key := address.Hex()

	// The nonce is consumed whether or not the signature checks out
	s.mu.Lock()
	pending, ok := s.nonces[key]
	delete(s.nonces, key)
	s.mu.Unlock()

	if !ok || s.now().After(pending.expiresAt) {
		return nil, ErrInvalidCredentials
	}
	if err := wallet.Verify(address, wallet.LoginMessage(address, pending.nonce), req.Signature); err != nil {
		logger.Info("wallet login rejected", zap.String("address", key), zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(key)
	if err != nil {
		return nil, err
	}
	logger.Info("wallet signed in", zap.String("address", key))
	return &models.LoginResponse{Token: token, Address: key, ExpiresAt: expiresAt}, nil
}

func (s *authService) pruneLocked(now time.Time) {
	for k, p := range s.nonces {
		if now.After(p.expiresAt) {
			delete(s.nonces, k)
		}
	}
}
