package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "unit-test-secret",
		Issuer:            "elibrary-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	now := time.Now().UTC()

	signed, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Email:  "reader@example.com",
		Role:   enums.AppRoleUser,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("unexpected user id %s", claims.UserID)
	}
	if claims.Role != enums.AppRoleUser {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("jti should be generated when omitted")
	}

	ident := claims.Identity()
	if ident.UserID != userID || ident.IsAdmin() {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.AppRole("superuser"),
	})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.AppRoleAdmin,
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAllowExpired(t *testing.T) {
	cfg := testJWTConfig()
	past := time.Now().Add(-2 * time.Hour)
	signed, err := MintAccessToken(cfg, past, AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.AppRoleUser,
		JTI:    "fixed-jti",
	})
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expired token should fail strict parse")
	}
	claims, err := ParseAccessTokenAllowExpired(cfg, signed)
	if err != nil {
		t.Fatalf("ParseAccessTokenAllowExpired: %v", err)
	}
	if claims.ID != "fixed-jti" {
		t.Fatalf("unexpected jti %q", claims.ID)
	}
}
