package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"filippo.io/edwards25519"

	"meme-ledger/internal/domain"
)

const tokenAddressDomain = "meme-ledger/token"

// ErrNoViableBump is returned when every bump seed hashes onto the curve.
var ErrNoViableBump = errors.New("no off-curve address for seeds")

// DeriveTokenAddress derives a deterministic token address from its creator,
// symbol and a per-factory nonce.
// Formula: SHA256(creator|symbol|nonce_be64|bump|domain), searched from bump
// 255 downwards until the digest is not a valid ed25519 point, so no private
// key can exist for the address.
func DeriveTokenAddress(creator domain.Address, symbol string, nonce uint64) (domain.Address, uint8, error) {
	creatorBytes := creator.Bytes()
	if creatorBytes == nil {
		return "", 0, domain.ErrInvalidAddress
	}

	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		h.Write(creatorBytes)
		h.Write([]byte(symbol))
		h.Write(nonceBytes[:])
		h.Write([]byte{byte(bump)})
		h.Write([]byte(tokenAddressDomain))
		digest := h.Sum(nil)

		if IsOnCurve(digest) {
			continue
		}

		addr, err := domain.AddressFromBytes(digest)
		if err != nil {
			return "", 0, err
		}
		return addr, uint8(bump), nil
	}

	return "", 0, ErrNoViableBump
}

// IsOnCurve reports whether b is the compressed encoding of an ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
