package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"meme-ledger/internal/domain"
)

// ComputeReceiptKey computes the vote receipt fingerprint using SHA256.
// Formula: SHA256(voter|token)
// Returns hex-encoded hash (64 characters).
func ComputeReceiptKey(voter, token domain.Address) domain.ReceiptKey {
	data := fmt.Sprintf("%s|%s", voter, token)

	hash := sha256.Sum256([]byte(data))
	return domain.ReceiptKey(hex.EncodeToString(hash[:]))
}
