package card

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IdentitySum hashes an external user handle to 64 bits:
// the first 8 bytes of keccak256(handle), big-endian.
func IdentitySum(handle string) uint64 {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.TrimSpace(handle)))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// IdentityOf returns the stable account key for a handle (16 lowercase hex chars).
func IdentityOf(handle string) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], IdentitySum(handle))
	return hex.EncodeToString(b[:])
}
