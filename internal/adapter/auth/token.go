package auth

import (
	"crypto/subtle"
	"strings"
)

// TokenMatches reports whether an authorization value carries validToken.
// The token may be sent bare or as "Bearer <token>".
func TokenMatches(header, validToken string) bool {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(validToken)) == 1
}
