package utils

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/library-catalog/internal/model"
)

var reader = model.Identity{ID: 7, Email: "reader@example.com", FirstName: "Ada", LastName: "Reader", Role: model.RoleUser}

func TestJSONSessionCodecRoundTrip(t *testing.T) {
	codec := JSONSessionCodec{}

	raw, err := codec.Encode(reader)
	require.NoError(t, err)
	assert.NotContains(t, raw, "\"", "cookie values cannot carry raw quotes")
	assert.NotContains(t, raw, ",")

	plain, err := url.PathUnescape(raw)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(plain), &fields))
	assert.Equal(t, "reader@example.com", fields["email"])
	assert.Equal(t, "user", fields["role"])

	got, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, reader, got)
}

func TestJSONSessionCodecRejectsGarbage(t *testing.T) {
	codec := JSONSessionCodec{}
	for _, raw := range []string{
		"not-json",
		"%zz",
		url.PathEscape(`{"id":7}`),
		url.PathEscape(`{"id":7,"email":"a@b.c","role":"superuser"}`),
	} {
		_, err := codec.Decode(raw)
		assert.ErrorIs(t, err, ErrInvalidSession, raw)
	}
}

func TestJWTSessionCodec(t *testing.T) {
	codec := JWTSessionCodec{Secret: []byte("0123456789abcdef0123456789abcdef"), TTL: time.Hour}

	raw, err := codec.Encode(reader)
	require.NoError(t, err)

	got, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, reader, got)

	other := JWTSessionCodec{Secret: []byte("another-secret-another-secret-xx"), TTL: time.Hour}
	_, err = other.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidSession)

	expired := JWTSessionCodec{Secret: codec.Secret, TTL: -time.Minute}
	stale, err := expired.Encode(reader)
	require.NoError(t, err)
	_, err = codec.Decode(stale)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewSessionCodec(t *testing.T) {
	c, err := NewSessionCodec("json", "")
	require.NoError(t, err)
	assert.IsType(t, JSONSessionCodec{}, c)

	_, err = NewSessionCodec("jwt", "")
	assert.Error(t, err)

	_, err = NewSessionCodec("yaml", "x")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
	assert.NotEqual(t, "correct horse", hash)
}

func TestPasswordLengthLimit(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordLength))
	require.NoError(t, err)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordLength+1))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}

func TestBurnVerifyUsesStoredCost(t *testing.T) {
	cost, err := bcrypt.Cost([]byte(dummyHash()))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
	assert.Equal(t, dummyHash(), dummyHash(), "hashed once")

	BurnVerify("anything")
}
