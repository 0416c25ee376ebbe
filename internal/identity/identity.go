// Package identity determines whose saved projects a caller sees.
//
// Identities come from a third-party sign-in ID token, an explicit header,
// or a CLI flag. Tokens are decoded without verifying their signature: the
// identity only selects a storage scope and is not an access control.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousScope is the storage scope of the signed-out user.
const AnonymousScope = "local"

// Header carries an explicit identity on HTTP requests.
const Header = "X-Extforge-Identity"

// ErrNoSubject is returned for a token without a usable subject or email.
var ErrNoSubject = errors.New("identity token has no subject")

// Identity is a signed-in user, or the anonymous user when ID is empty.
type Identity struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Anonymous is the signed-out identity.
var Anonymous = Identity{}

// IsAnonymous reports whether the identity is the signed-out user.
func (i Identity) IsAnonymous() bool {
	return i.ID == ""
}

// Scope returns the storage scope for the identity: a stable hash of the
// identifier, so raw emails or subjects never appear in paths.
func (i Identity) Scope() string {
	if i.IsAnonymous() {
		return AnonymousScope
	}
	sum := sha256.Sum256([]byte(i.ID))
	return hex.EncodeToString(sum[:16])
}

// Claims is the subset of an OpenID Connect ID token extforge reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// FromToken decodes an ID token without verifying it.
func FromToken(token string) (Identity, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, err
	}

	id := claims.Subject
	if id == "" {
		id = claims.Email
	}
	if id == "" {
		return Identity{}, ErrNoSubject
	}
	if claims.Issuer != "" && claims.Subject != "" {
		id = claims.Issuer + "|" + claims.Subject
	}
	return Identity{ID: id, Email: claims.Email, Name: claims.Name}, nil
}

// FromString builds an identity from a plain identifier such as an email.
func FromString(s string) Identity {
	s = strings.TrimSpace(s)
	if s == "" {
		return Anonymous
	}
	return Identity{ID: s, Email: emailOf(s)}
}

func emailOf(s string) string {
	if strings.Contains(s, "@") {
		return s
	}
	return ""
}

// FromRequest resolves the caller of an HTTP request. A bearer ID token
// takes precedence over the identity header. Requests carrying neither are
// anonymous.
func FromRequest(r *http.Request) (Identity, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return Identity{}, errors.New("unsupported authorization scheme")
		}
		return FromToken(strings.TrimSpace(token))
	}
	return FromString(r.Header.Get(Header)), nil
}
