package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "correct-horse-battery"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(match)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{Username: "papa_ji", DisplayName: "Papa Ji", Password: "password"}, false},
		{"Username too short", RegisterRequest{Username: "ab", DisplayName: "Ab", Password: "password"}, true},
		{"Username with uppercase", RegisterRequest{Username: "PapaJi", DisplayName: "Papa Ji", Password: "password"}, true},
		{"Username with spaces", RegisterRequest{Username: "papa ji", DisplayName: "Papa Ji", Password: "password"}, true},
		{"Password too short", RegisterRequest{Username: "papa_ji", DisplayName: "Papa Ji", Password: "short"}, true},
		{"Password too long", RegisterRequest{Username: "papa_ji", DisplayName: "Papa Ji", Password: strings.Repeat("a", 73)}, true},
		{"Missing display name", RegisterRequest{Username: "papa_ji", Password: "password"}, true},
		{"Avatar not a URL", RegisterRequest{Username: "papa_ji", DisplayName: "Papa Ji", Password: "password", Avatar: "not-a-url"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	manager := NewTokenManager("test-secret-key", time.Hour)

	token, err := manager.Generate("u1")
	req.NoError(err)

	claims, err := manager.Validate(token)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
	req.Equal("chat-hub", claims.Issuer)
}

func TestTokenRejectsWrongKeyAndExpiry(t *testing.T) {
	req := require.New(t)

	// Given a token signed with another key
	other := NewTokenManager("another-secret", time.Hour)
	token, err := other.Generate("u1")
	req.NoError(err)

	manager := NewTokenManager("test-secret-key", time.Hour)
	_, err = manager.Validate(token)
	req.Error(err)

	// Given an already expired token
	expired := NewTokenManager("test-secret-key", -time.Minute)
	token, err = expired.Generate("u1")
	req.NoError(err)

	_, err = manager.Validate(token)
	req.Error(err)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("a-long-password-for-benchmarks")
	}
}
