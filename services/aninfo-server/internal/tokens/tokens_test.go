package tokens

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/aninfo/internal/platform/auth"
)

func TestNewSessionToken_RoundTrip(t *testing.T) {
	s := Service{Secret: []byte("secret"), TokenTTL: time.Hour}
	now := time.Now().UTC().Truncate(time.Second)

	iss, err := s.NewSessionToken(42, "rin", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iss.ID == "" {
		t.Fatal("token id should be set")
	}
	if !iss.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp = %v", iss.ExpiresAt)
	}

	claims, err := s.Verifier(nil).Verify(context.Background(), iss.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Username != "rin" || claims.ID != iss.ID {
		t.Fatalf("claims = %+v", claims)
	}
	uid, err := UserID(claims)
	if err != nil || uid != 42 {
		t.Fatalf("user id = %d, %v", uid, err)
	}
}

func TestNewSessionToken_MissingSecret(t *testing.T) {
	if _, err := (Service{}).NewSessionToken(1, "x", time.Time{}); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestNewSessionToken_DefaultTTL(t *testing.T) {
	s := Service{Secret: []byte("secret")}
	now := time.Now().UTC()
	iss, err := s.NewSessionToken(1, "x", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := iss.ExpiresAt.Sub(now); got != 7*24*time.Hour {
		t.Fatalf("ttl = %v", got)
	}
}

func TestUserID_Invalid(t *testing.T) {
	if _, err := UserID(nil); err == nil {
		t.Fatal("expected error for nil claims")
	}
	c := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-number"}}
	if _, err := UserID(c); err == nil {
		t.Fatal("expected error for non-numeric subject")
	}
}
