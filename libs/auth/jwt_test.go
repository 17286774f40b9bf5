package auth

import (
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	token, err := SignHS256("user-1", "patient", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyHS256(token, "secret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "patient" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyHS256Rejects(t *testing.T) {
	good, _ := SignHS256("user-1", "patient", "secret", time.Hour)
	expired, _ := SignHS256("user-1", "patient", "secret", -time.Minute)
	noRole, _ := SignHS256("user-1", "", "secret", time.Hour)

	cases := map[string]string{
		"wrong secret": good,
		"expired":      expired,
		"no role":      noRole,
		"garbage":      "not.a.jwt",
	}
	for name, token := range cases {
		secret := "secret"
		if name == "wrong secret" {
			secret = "other"
		}
		if _, err := VerifyHS256(token, secret); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("expected abc, got %q %v", tok, ok)
	}
	if tok, ok := BearerToken("bearer  xyz "); !ok || tok != "xyz" {
		t.Fatalf("expected xyz, got %q %v", tok, ok)
	}
	for _, h := range []string{"", "Basic abc", "Bearer"} {
		if _, ok := BearerToken(h); ok {
			t.Fatalf("expected %q to be rejected", h)
		}
	}
}
