// ABOUTME: Unit tests for JWT token verification, generation, and inspection
// ABOUTME: Tests valid tokens, invalid tokens, expired tokens, and claim fallbacks

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-for-jwt-signing")

func TestJWTVerifier_ValidToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	token, err := verifier.Generate("op-123", "admin", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if claims.Subject != "op-123" {
		t.Errorf("Verify() subject = %q, want %q", claims.Subject, "op-123")
	}
	if claims.Role != "admin" {
		t.Errorf("Verify() role = %q, want admin", claims.Role)
	}
	if claims.Expired(time.Now()) {
		t.Error("fresh token reported expired")
	}
}

func TestJWTVerifier_InvalidToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	otherToken, _ := NewJWTVerifier([]byte("different-secret")).Generate("op-123", "admin", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "garbage token", token: "not-a-jwt-token"},
		{name: "malformed JWT", token: "header.payload.signature"},
		{name: "wrong secret", token: otherToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret)

	token, err := verifier.Generate("op-123", "admin", -time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestInspect_IgnoresSignatureAndExpiry(t *testing.T) {
	token, err := NewJWTVerifier([]byte("backend-only-secret")).Generate("op-9", "staff", -time.Minute)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if claims.Subject != "op-9" || claims.Role != "staff" {
		t.Errorf("Inspect() = %+v", claims)
	}
	if !claims.Expired(time.Now()) {
		t.Error("expected expired claims")
	}
}

func TestInspect_SubjectFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		claims  jwt.MapClaims
		want    string
		wantErr error
	}{
		{name: "sub", claims: jwt.MapClaims{"sub": "a"}, want: "a"},
		{name: "id", claims: jwt.MapClaims{"id": "b"}, want: "b"},
		{name: "userId", claims: jwt.MapClaims{"userId": "c"}, want: "c"},
		{name: "none", claims: jwt.MapClaims{"role": "admin"}, wantErr: ErrMissingClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString(testSecret)
			if err != nil {
				t.Fatalf("SignedString() error = %v", err)
			}

			claims, err := Inspect(token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Inspect() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if claims.Subject != tt.want {
				t.Errorf("Inspect() subject = %q, want %q", claims.Subject, tt.want)
			}
			if !claims.ExpiresAt.IsZero() || claims.Expired(time.Now()) {
				t.Error("token without exp must never expire")
			}
		})
	}
}

func TestInspect_Garbage(t *testing.T) {
	if _, err := Inspect("nope"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Inspect() error = %v, want ErrInvalidToken", err)
	}
}
