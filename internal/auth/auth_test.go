package auth

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteArray(t *testing.T, key solana.PrivateKey) string {
	t.Helper()
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	require.NoError(t, err)
	return string(data)
}

func TestVerify(t *testing.T) {
	w, err := GenerateWallet()
	require.NoError(t, err)
	other, err := GenerateWallet()
	require.NoError(t, err)

	key, err := solana.PrivateKeyFromBase58(w.SecretKey)
	require.NoError(t, err)

	assert.NoError(t, Verify(w.PublicKey, w.SecretKey), "base58 credential")
	assert.NoError(t, Verify(w.PublicKey, byteArray(t, key)), "byte array credential")

	assert.ErrorIs(t, Verify(other.PublicKey, w.SecretKey), ErrCredentialMismatch)
	assert.ErrorIs(t, Verify("not-a-wallet", w.SecretKey), ErrCredentialMismatch)
	assert.ErrorIs(t, Verify(w.PublicKey, ""), ErrCredentialMismatch)
	assert.ErrorIs(t, Verify(w.PublicKey, "[1,2,3]"), ErrCredentialMismatch)
}

func TestParsePrivateKey_RejectsTamperedKey(t *testing.T) {
	w, err := GenerateWallet()
	require.NoError(t, err)
	key, err := solana.PrivateKeyFromBase58(w.SecretKey)
	require.NoError(t, err)

	tampered := append(solana.PrivateKey(nil), key...)
	tampered[63] ^= 0xff

	_, err = ParsePrivateKey(byteArray(t, tampered))
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = ParsePrivateKey("[256" + byteArray(t, key)[1:])
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
