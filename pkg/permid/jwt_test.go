package permid

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestSubjectFromToken(t *testing.T) {
	token := &jwt.Token{Claims: jwt.MapClaims{"sub": "alice"}}
	sub, err := SubjectFromToken(token)
	if err != nil {
		t.Fatalf("SubjectFromToken error: %v", err)
	}
	if sub != "alice" {
		t.Errorf("SubjectFromToken() = %q, want %q", sub, "alice")
	}
}

func TestSubjectFromTokenMissingSubject(t *testing.T) {
	token := &jwt.Token{Claims: jwt.MapClaims{}}
	if _, err := SubjectFromToken(token); err == nil {
		t.Error("expected an error for a token with no subject claim")
	}
}

func TestSubjectFromTokenWrongClaimsType(t *testing.T) {
	token := &jwt.Token{Claims: jwt.RegisteredClaims{}}
	if _, err := SubjectFromToken(token); err == nil {
		t.Error("expected an error for non-MapClaims claims")
	}
}
