package permid

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTSubjectID turns a validated bearer token's "sub" claim into the
// registry's string user key. FromString is the identity function (a
// registry user key is already a bare subject string); ToString likewise
// passes the subject through unchanged — the conversion work happens once,
// at the HTTP boundary, via SubjectFromToken.
func JWTSubjectID() Identity[string] {
	return StringIdentity()
}

// SubjectFromToken extracts the "sub" claim from a token already validated
// by the caller (e.g. jwt.ParseWithClaims against the demo's signing key).
func SubjectFromToken(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("permid: unsupported claims type %T", token.Claims)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("permid: reading subject claim: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("permid: empty subject claim")
	}
	return sub, nil
}
