package identity

import (
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unrelated-secret"))
	require.NoError(t, err)
	return token
}

func TestFromToken(t *testing.T) {
	token := signed(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1234", Issuer: "https://accounts.google.com"},
		Email:            "ada@example.com",
		Name:             "Ada",
	})

	id, err := FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.google.com|1234", id.ID)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "Ada", id.Name)
	assert.False(t, id.IsAnonymous())
}

func TestFromToken_EmailOnly(t *testing.T) {
	id, err := FromToken(signed(t, Claims{Email: "bob@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", id.ID)
}

func TestFromToken_Errors(t *testing.T) {
	_, err := FromToken(signed(t, Claims{Name: "nobody"}))
	assert.ErrorIs(t, err, ErrNoSubject)

	_, err = FromToken("not.a.token")
	assert.Error(t, err)
}

func TestScope(t *testing.T) {
	assert.Equal(t, AnonymousScope, Anonymous.Scope())

	a := FromString("alice@example.com")
	b := FromString("bob@example.com")
	assert.NotEqual(t, a.Scope(), b.Scope())
	assert.Equal(t, a.Scope(), FromString(" alice@example.com ").Scope())
	assert.Len(t, a.Scope(), 32)
	assert.NotContains(t, a.Scope(), "alice")
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	id, err := FromRequest(r)
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())

	r.Header.Set(Header, "carol@example.com")
	id, err = FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", id.Email)

	r.Header.Set("Authorization", "Bearer "+signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}}))
	id, err = FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "s", id.ID, "token wins over header")

	r.Header.Set("Authorization", "Basic abc")
	_, err = FromRequest(r)
	assert.Error(t, err)
}
