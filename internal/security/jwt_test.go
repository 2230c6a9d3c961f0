package security

import (
	"errors"
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, errGen := GenerateAdminToken("test-secret", 7, "ops@kanucard.com", time.Hour)
	if errGen != nil {
		t.Fatalf("generate token: %v", errGen)
	}

	claims, errParse := ParseAdminToken("test-secret", token)
	if errParse != nil {
		t.Fatalf("parse token: %v", errParse)
	}
	if claims.AdminID != 7 {
		t.Fatalf("AdminID = %d, want 7", claims.AdminID)
	}
	if claims.Email != "ops@kanucard.com" {
		t.Fatalf("Email = %q, want %q", claims.Email, "ops@kanucard.com")
	}
}

func TestParseAdminTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, errGen := GenerateAdminToken("secret-a", 1, "ops@kanucard.com", time.Hour)
	if errGen != nil {
		t.Fatalf("generate token: %v", errGen)
	}
	if _, errParse := ParseAdminToken("secret-b", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", errParse)
	}
}

func TestParseAdminTokenExpired(t *testing.T) {
	t.Parallel()

	token, errGen := GenerateAdminToken("test-secret", 1, "ops@kanucard.com", -time.Minute)
	if errGen != nil {
		t.Fatalf("generate token: %v", errGen)
	}
	if _, errParse := ParseAdminToken("test-secret", token); !errors.Is(errParse, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", errParse)
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, errHash := HashPassword("hunter2hunter2")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Fatalf("expected password to verify against its hash")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Fatalf("expected wrong password to fail verification")
	}
}
