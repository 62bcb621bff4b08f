package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	InitAuthTokens("test-secret", time.Minute)

	playerID := uuid.New()
	token, err := IssueToken(playerID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	got, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != playerID {
		t.Fatalf("ParseToken = %s, want %s", got, playerID)
	}
}

func TestAuthTokenExpired(t *testing.T) {
	InitAuthTokens("test-secret", -time.Minute)

	token, err := IssueToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(token); err == nil {
		t.Fatal("expired token parsed successfully")
	}
}

func TestAuthTokenGarbage(t *testing.T) {
	InitAuthTokens("test-secret", time.Minute)

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := ParseToken(token); err == nil {
			t.Fatalf("token %q parsed successfully", token)
		}
	}
}

func TestAuthTokenWrongSecret(t *testing.T) {
	InitAuthTokens("first-secret", time.Minute)
	token, err := IssueToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	InitAuthTokens("second-secret", time.Minute)
	if _, err := ParseToken(token); err == nil {
		t.Fatal("token signed with a different secret parsed successfully")
	}
}
