package auth

import (
	"strings"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, _ := HashPassword("same password")
	h2, _ := HashPassword("same password")
	if h1 == h2 {
		t.Error("bcrypt should produce different hashes for the same password (different salts)")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"short", true},
		{"eight chars", false},
		{strings.Repeat("x", 72), false},
		{strings.Repeat("x", 73), true},
	}
	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%d chars) err = %v, wantErr %v", len(tt.password), err, tt.wantErr)
		}
	}
}

func TestGenerateApiKey(t *testing.T) {
	key, secret, hash, err := GenerateApiKey()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		t.Errorf("key %q missing prefix", key)
	}
	if !strings.HasPrefix(secret, SecretPrefix) {
		t.Errorf("secret %q missing prefix", secret)
	}
	if HashSecret(secret) != hash {
		t.Error("returned hash does not match secret")
	}

	_, secret2, _, _ := GenerateApiKey()
	if secret == secret2 {
		t.Error("secrets must be unique")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := SignJWT("signing-secret", "user-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	userID, err := VerifyJWT("signing-secret", token)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user-1" {
		t.Errorf("got user %q", userID)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, _ := SignJWT("secret-a", "user-1", time.Hour)
	if _, err := VerifyJWT("secret-b", token); err == nil {
		t.Error("token signed with another secret should fail verification")
	}
}

func TestJWTExpired(t *testing.T) {
	token, _ := SignJWT("secret", "user-1", -time.Minute)
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Error("expired token should fail verification")
	}
}
