package usertoken

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestVerifySubjectRoundTrip(t *testing.T) {
	v, err := NewVerifier(Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := v.Sign("alice", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	subject, err := v.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "alice" {
		t.Fatalf("subject = %q, want alice", subject)
	}
}

func TestVerifySubjectRejectsWrongSecret(t *testing.T) {
	signer, _ := NewVerifier(Config{Secret: "secret-a"})
	verifier, _ := NewVerifier(Config{Secret: "secret-b"})
	token, err := signer.Sign("alice", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.VerifySubject(token); err == nil {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestVerifySubjectRejectsForeignIssuerAndAudience(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret"})

	other, _ := NewVerifier(Config{Secret: "test-secret", Issuer: "someone-else"})
	token, err := other.Sign("alice", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected foreign issuer to fail")
	}

	other, _ = NewVerifier(Config{Secret: "test-secret", Audience: "other-api"})
	token, err = other.Sign("alice", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected foreign audience to fail")
	}
}

func TestVerifySubjectRejectsUnsignedAlgorithm(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret"})
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    defaultIssuer,
		Audience:  jwt.ClaimStrings{defaultAudience},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected alg=none token to fail")
	}
}

func TestVerifySubjectRejectsExpiredToken(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret", Leeway: time.Second})
	token, err := v.Sign("alice", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = v.VerifySubject(token)
	if err == nil {
		t.Fatalf("expected expired token to fail")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestVerifySubjectRequiresSubject(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "test-secret"})
	token, err := v.Sign("   ", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected blank subject to fail")
	}
}
