package auth

import (
	"time"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Authorizer issues and verifies per-(account, platform) connection tokens.
// It only mutates the account it is handed; persisting is the caller's job.
type Authorizer struct {
	secret []byte
}

func NewAuthorizer(secret string) *Authorizer {
	return &Authorizer{secret: []byte(secret)}
}

// Connect returns the existing token for platform, or mints and stores a new
// one. created reports whether acc was modified.
func (a *Authorizer) Connect(acc *bank.Account, platform string, now time.Time) (token string, created bool) {
	if c, ok := acc.Connection(platform); ok {
		return c.Token, false
	}
	token = Sign(a.secret, Claims{
		CardNumber: acc.CardNumber,
		Expiry:     acc.Expiry,
		VerifyCode: acc.VerifyCode,
		IssuedAt:   now,
	})
	acc.AddConnection(bank.Connection{Platform: platform, Token: token})
	return token, true
}

// Verify checks that token is a stored connection of acc for platform. The
// returned code tells which check failed; callers must not expose it.
func (a *Authorizer) Verify(acc *bank.Account, platform, token string) error {
	if len(acc.Connections) == 0 {
		return bank.Errorf(bank.CodeNotConnected, "account %s has no connections", acc.ID)
	}
	conns, ok := acc.Connections[platform]
	if !ok || len(conns) == 0 {
		return bank.Errorf(bank.CodeUnknownPlatform, "account %s never connected %q", acc.ID, platform)
	}
	for _, c := range conns {
		if Equal(c.Token, token) {
			return nil
		}
	}
	return bank.Errorf(bank.CodeTokenMismatch, "token mismatch for %q on account %s", platform, acc.ID)
}
