package auth_test

import (
	"testing"

	"github.com/busycorner/panel/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	role := "MANAGER"

	token, err := auth.GenerateToken(secret, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	secret := "test-secret"

	token, err := auth.GenerateRefreshToken(secret, "ADMIN")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	role, err := auth.ValidateRefreshToken(secret, token)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if role != "ADMIN" {
		t.Errorf("role: got %v, want ADMIN", role)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	secret := "test-secret"

	access, err := auth.GenerateToken(secret, "ADMIN")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	// Access tokens carry no subject, so the refresh path rejects them.
	if _, err := auth.ValidateRefreshToken(secret, access); err == nil {
		t.Fatal("expected access token rejected on refresh path")
	}
}
