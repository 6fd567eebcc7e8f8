// Package card issues virtual card credentials. Generation is driven by an
// explicit seed so that the same (seed, clock) always yields the same card.
package card

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

// Issuer prefixes (BIN) per scheme.
var schemePrefixes = map[string]uint64{
	"Visa":       4787,
	"MasterCard": 2289,
}

// Display names per card type.
var cardNames = map[string]string{
	"Infinite": "Black Card",
	"Platinum": "Platinum Card",
	"Classic":  "Classic Card",
}

// Card holds freshly generated credentials.
type Card struct {
	Number     string
	Expiry     string // MM/YY
	VerifyCode string
}

// NormalizeScheme maps a case-insensitive scheme name to its canonical form.
func NormalizeScheme(s string) (string, error) {
	for name := range schemePrefixes {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return name, nil
		}
	}
	return "", bank.Errorf(bank.CodeInvalidScheme, "unsupported scheme %q", s)
}

// NormalizeCardType maps a case-insensitive card type to its canonical form.
func NormalizeCardType(s string) (string, error) {
	for name := range cardNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return name, nil
		}
	}
	return "", bank.Errorf(bank.CodeInvalidCardType, "unsupported card type %q", s)
}

// DisplayName renders "<scheme> <card name>", e.g. "Visa Black Card".
func DisplayName(scheme, cardType string) (string, error) {
	name, ok := cardNames[cardType]
	if !ok {
		return "", bank.Errorf(bank.CodeInvalidCardType, "unknown card type %q", cardType)
	}
	return fmt.Sprintf("%s %s", scheme, name), nil
}

// Seed mixes the holder identity with the registration time.
func Seed(handle string, now time.Time) uint64 {
	return IdentitySum(handle) + uint64(now.Unix())
}

// NewRand returns a ChaCha8 generator keyed by seed (little-endian in the
// first 8 bytes of the key, rest zero).
func NewRand(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return rand.New(rand.NewChaCha8(key))
}

// Generate produces a card number, expiry and verification code. The number
// is prefix×10^12 plus a 12-digit draw; the code is a 3-digit draw; expiry is
// now's month, expiryYears ahead.
func Generate(rng *rand.Rand, scheme string, now time.Time, expiryYears int) (Card, error) {
	canonical, err := NormalizeScheme(scheme)
	if err != nil {
		return Card{}, err
	}
	prefix := schemePrefixes[canonical]

	last12 := nDigit(rng, 12)
	code := nDigit(rng, 3)

	return Card{
		Number:     fmt.Sprintf("%d", prefix*1_000_000_000_000+last12),
		Expiry:     Expiry(now, expiryYears),
		VerifyCode: fmt.Sprintf("%d", code),
	}, nil
}

// Expiry formats now's month and year+years as MM/YY.
func Expiry(now time.Time, years int) string {
	return fmt.Sprintf("%02d/%02d", int(now.Month()), (now.Year()+years)%100)
}

// nDigit draws uniformly from [10^(n-1), 10^n).
func nDigit(rng *rand.Rand, n int) uint64 {
	lower := uint64(1)
	for i := 1; i < n; i++ {
		lower *= 10
	}
	upper := lower * 10
	return lower + rng.Uint64N(upper-lower)
}
