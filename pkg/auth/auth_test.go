package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

func testAccount() *bank.Account {
	return &bank.Account{
		ID:         "00000000000000aa",
		Holder:     "alice",
		CardNumber: "4787123456789012",
		Expiry:     "10/31",
		VerifyCode: "123",
	}
}

func TestSignAndCheck(t *testing.T) {
	secret := []byte("connection_key")
	issued := time.Unix(1_760_000_000, 0)
	tok := Sign(secret, Claims{CardNumber: "4787123456789012", Expiry: "10/31", VerifyCode: "123", IssuedAt: issued})

	enc, sig, ok := strings.Cut(tok, ".")
	if !ok {
		t.Fatalf("token %q has no separator", tok)
	}
	raw, _ := base64.StdEncoding.DecodeString(enc)
	if string(raw) != "4787123456789012|10/31|123|1760000000" {
		t.Errorf("payload = %q", raw)
	}
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(sig))
	}

	claims, err := Check(secret, tok)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if claims.CardNumber != "4787123456789012" || !claims.IssuedAt.Equal(issued) {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := Check([]byte("other"), tok); !bank.IsCode(err, bank.CodeTokenMismatch) {
		t.Errorf("wrong secret err = %v, want TokenMismatch", err)
	}
	if _, err := Check(secret, "garbage"); err == nil {
		t.Errorf("garbage token accepted")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	a := NewAuthorizer("connection_key")
	acc := testAccount()

	tok1, created := a.Connect(acc, "discord", time.Unix(100, 0))
	if !created {
		t.Fatalf("first connect did not create")
	}
	tok2, created := a.Connect(acc, "discord", time.Unix(200, 0))
	if created {
		t.Errorf("second connect created a new connection")
	}
	if tok1 != tok2 {
		t.Errorf("tokens differ: %s vs %s", tok1, tok2)
	}
	if n := len(acc.Connections["discord"]); n != 1 {
		t.Errorf("connections for discord = %d, want 1", n)
	}
}

func TestVerify(t *testing.T) {
	a := NewAuthorizer("connection_key")
	acc := testAccount()

	if err := a.Verify(acc, "discord", "x"); !bank.IsCode(err, bank.CodeNotConnected) {
		t.Errorf("no connections err = %v, want NotConnected", err)
	}

	tok, _ := a.Connect(acc, "discord", time.Unix(100, 0))

	tests := []struct {
		name     string
		platform string
		token    string
		want     bank.Code
	}{
		{"ok", "discord", tok, ""},
		{"unknown platform", "telegram", tok, bank.CodeUnknownPlatform},
		{"token mismatch", "discord", tok + "0", bank.CodeTokenMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Verify(acc, tt.platform, tt.token)
			if got := bank.CodeOf(err); got != tt.want {
				t.Errorf("Verify code = %q, want %q (err=%v)", got, tt.want, err)
			}
			if err != nil && bank.KindOf(err) != bank.KindAuthorization {
				t.Errorf("kind = %v, want authorization", bank.KindOf(err))
			}
		})
	}
}
