// Package wallet verifies that a request was signed by the owner of an
// account, using the personal_sign scheme browser wallets implement.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrSignatureMismatch  = errors.New("signature does not match address")
)

// LoginMessage is the text a wallet signs to prove control of address
func LoginMessage(address common.Address, nonce string) string {
	return fmt.Sprintf("Sign in to Raffle Ledger\n\nAddress: %s\nNonce: %s", address.Hex(), nonce)
}

// Recover returns the account that produced signature over message.
func Recover(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrMalformedSignature, len(sig))
	}
	// wallets return V as 27/28
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify checks that signature over message was made by address
func Verify(address common.Address, message, signature string) error {
	signer, err := Recover(message, signature)
	if err != nil {
		return err
	}
	if signer != address {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign produces a personal_sign signature with V in wallet form.
func Sign(key *ecdsa.PrivateKey, message string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
