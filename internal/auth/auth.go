// internal/auth/auth.go
package auth

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrCredentialMismatch means the credential does not belong to the wallet.
	ErrCredentialMismatch = errors.New("credential does not match wallet")
	// ErrInvalidCredential means the credential could not be parsed as a secret key.
	ErrInvalidCredential = errors.New("invalid private key")
)

// ParsePrivateKey accepts a base58 secret key or a JSON array of 64 bytes.
func ParsePrivateKey(credential string) (solana.PrivateKey, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidCredential)
	}

	var key solana.PrivateKey
	if strings.HasPrefix(credential, "[") {
		var raw []int
		if err := json.Unmarshal([]byte(credential), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		key = make(solana.PrivateKey, len(raw))
		for i, v := range raw {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidCredential, i)
			}
			key[i] = byte(v)
		}
	} else {
		k, err := solana.PrivateKeyFromBase58(credential)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		key = k
	}

	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCredential, ed25519.PrivateKeySize, len(key))
	}
	// The trailing half must be the public key derived from the seed.
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !bytes.Equal(derived, key) {
		return nil, fmt.Errorf("%w: public half does not match seed", ErrInvalidCredential)
	}
	return key, nil
}

// Verify checks that credential is the secret key of wallet.
func Verify(wallet, credential string) error {
	want, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return fmt.Errorf("%w: invalid wallet address", ErrCredentialMismatch)
	}
	key, err := ParsePrivateKey(credential)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialMismatch, err)
	}
	if !key.PublicKey().Equals(want) {
		return ErrCredentialMismatch
	}
	return nil
}

// Wallet is a freshly generated keypair.
type Wallet struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"` // base58
}

// GenerateWallet creates a new random keypair.
func GenerateWallet() (Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return Wallet{PublicKey: key.PublicKey().String(), SecretKey: key.String()}, nil
}

// RequestAirdrop asks the cluster at rpcURL for 1 SOL to wallet and returns
// the transaction signature.
func RequestAirdrop(ctx context.Context, rpcURL, wallet string) (string, error) {
	pub, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return "", fmt.Errorf("invalid wallet address: %w", err)
	}
	if rpcURL == "" {
		rpcURL = rpc.DevNet_RPC
	}

	sig, err := rpc.New(rpcURL).RequestAirdrop(ctx, pub, solana.LAMPORTS_PER_SOL, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("airdrop failed: %w", err)
	}
	return sig.String(), nil
}
