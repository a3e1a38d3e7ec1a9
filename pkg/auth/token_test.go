package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/brandinbox/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "bnb-api", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: 42, Email: "seller@example.com"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "seller@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Subject != "42" {
		t.Fatalf("expected subject 42, got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be generated")
	}
	remaining := claims.Remaining(now)
	if remaining <= 29*time.Minute || remaining > 30*time.Minute {
		t.Fatalf("unexpected remaining ttl %v", remaining)
	}
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	now := time.Now()
	if _, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, now, AccessTokenPayload{UserID: 1}); err == nil {
		t.Fatal("expected missing secret to fail")
	}
	if _, err := MintAccessToken(config.JWTConfig{Secret: "x"}, now, AccessTokenPayload{UserID: 1}); err == nil {
		t.Fatal("expected missing issuer to fail")
	}
	if _, err := MintAccessToken(testJWTConfig(), now, AccessTokenPayload{}); err == nil {
		t.Fatal("expected missing user id to fail")
	}
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 7})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	if _, err := ParseAccessToken(wrongIssuer, token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}

	if _, err := ParseAccessToken(cfg, strings.TrimSuffix(token, token[len(token)-2:])); err == nil {
		t.Fatal("expected truncated token to fail")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: 7})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
