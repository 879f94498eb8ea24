package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/izposoja/internal/model"
)

var testUser = &model.User{ID: "3f0c1b9e-uid", Username: "admin", Role: model.RoleAdmin}

func TestIssueAndVerify(t *testing.T) {
	s := NewSessions("test-secret-key")

	token, err := s.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UID() != testUser.ID {
		t.Errorf("expected uid %q, got %q", testUser.ID, claims.UID())
	}
	if claims.Username != "admin" {
		t.Errorf("expected username 'admin', got %q", claims.Username)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if claims.ID == "" {
		t.Error("expected a JTI")
	}
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	s := NewSessions("secret")
	a, _ := s.Issue(testUser)
	b, _ := s.Issue(testUser)

	ca, _ := s.Verify(a)
	cb, _ := s.Verify(b)
	if ca.ID == cb.ID {
		t.Errorf("expected distinct JTIs, both were %q", ca.ID)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _ := NewSessions("secret1").Issue(testUser)

	_, err := NewSessions("secret2").Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := NewSessions("secret").Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	s := NewSessions("secret")
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return issued }
	token, _ := s.Issue(testUser)

	s.Now = func() time.Time { return issued.Add(TokenExpiry + time.Minute) }
	if _, err := s.Verify(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected expired token error, got %v", err)
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Username: "mallory",
		Role:     model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    TokenIssuer,
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewSessions("secret").Verify(token); err == nil {
		t.Error("expected HS512 token to be rejected")
	}
}

func TestTokenExpiry(t *testing.T) {
	s := NewSessions("test")
	token, _ := s.Issue(testUser)
	claims, _ := s.Verify(token)

	diff := time.Now().Add(TokenExpiry).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match its hash")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected wrong password not to match")
	}
}
