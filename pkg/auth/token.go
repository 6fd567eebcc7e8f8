// Package auth mints and checks connection tokens. A token binds a card's
// credentials to an issue time and is signed with a server-held secret:
//
//	base64(cardNumber|expiry|verifyCode|unix) + "." + hex(HMAC-SHA256(secret, payload))
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

const separator = "."

// Claims are the fields carried in a token payload.
type Claims struct {
	CardNumber string
	Expiry     string
	VerifyCode string
	IssuedAt   time.Time
}

func (c Claims) payload() string {
	return fmt.Sprintf("%s|%s|%s|%d", c.CardNumber, c.Expiry, c.VerifyCode, c.IssuedAt.Unix())
}

// Sign produces a token for the given claims.
func Sign(secret []byte, c Claims) string {
	payload := c.payload()
	return base64.StdEncoding.EncodeToString([]byte(payload)) + separator + signature(secret, payload)
}

func signature(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Check verifies the signature of token and returns its claims.
func Check(secret []byte, token string) (Claims, error) {
	enc, sig, ok := strings.Cut(token, separator)
	if !ok {
		return Claims{}, bank.Errorf(bank.CodeTokenMismatch, "token has no signature")
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return Claims{}, bank.Wrap(bank.CodeTokenMismatch, err, "token payload is not base64")
	}
	payload := string(raw)
	if !hmac.Equal([]byte(sig), []byte(signature(secret, payload))) {
		return Claims{}, bank.Errorf(bank.CodeTokenMismatch, "token signature mismatch")
	}

	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return Claims{}, bank.Errorf(bank.CodeTokenMismatch, "token payload has %d fields", len(parts))
	}
	unix, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Claims{}, bank.Wrap(bank.CodeTokenMismatch, err, "token timestamp")
	}
	return Claims{
		CardNumber: parts[0],
		Expiry:     parts[1],
		VerifyCode: parts[2],
		IssuedAt:   time.Unix(unix, 0),
	}, nil
}

// Equal compares two tokens in constant time.
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
