package models

import "time"

// NonceRequest asks for a sign-in challenge for a wallet address
type NonceRequest struct {
	Address string `json:"address" binding:"required"`
}

// NonceResponse carries the message the wallet has to sign
type NonceResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginRequest defines the structure for login requests.
// Signature is the hex personal_sign signature over the issued message.
type LoginRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// LoginResponse holds the issued bearer token
type LoginResponse struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expiresAt"`
}
