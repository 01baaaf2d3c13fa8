package utils // package utils provides helpers for hashing and session tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/library-catalog/internal/model"
)

// SessionTTL is how long a session cookie lives in the browser.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidSession is returned for any cookie value that cannot be turned
// back into a complete identity.
var ErrInvalidSession = errors.New("invalid session")

// SessionCodec turns an identity into a cookie value and back.
type SessionCodec interface {
	Encode(id model.Identity) (string, error)
	Decode(raw string) (model.Identity, error)
}

// NewSessionCodec returns the codec for the configured format: "json" for the
// plain cookie, "jwt" for an HS256-signed one.
func NewSessionCodec(format, secret string) (SessionCodec, error) {
	switch format {
	case "", "json":
		return JSONSessionCodec{}, nil
	case "jwt":
		if secret == "" {
			return nil, errors.New("jwt session codec requires a secret")
		}
		return JWTSessionCodec{Secret: []byte(secret), TTL: SessionTTL}, nil
	default:
		return nil, fmt.Errorf("unknown session format %q", format)
	}
}

// JSONSessionCodec stores the identity as URL-escaped JSON. It is not signed.
type JSONSessionCodec struct{}

func (JSONSessionCodec) Encode(id model.Identity) (string, error) {
	b, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return url.PathEscape(string(b)), nil
}

func (JSONSessionCodec) Decode(raw string) (model.Identity, error) {
	s, err := url.PathUnescape(raw)
	if err != nil {
		return model.Identity{}, ErrInvalidSession
	}
	var id model.Identity
	if err := json.Unmarshal([]byte(s), &id); err != nil {
		return model.Identity{}, ErrInvalidSession
	}
	return checkIdentity(id)
}

// JWTSessionCodec signs the identity as JWT claims.
type JWTSessionCodec struct {
	Secret []byte
	TTL    time.Duration
}

type sessionClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func (c JWTSessionCodec) Encode(id model.Identity) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.Secret)
}

func (c JWTSessionCodec) Decode(raw string) (model.Identity, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return c.Secret, nil
	})
	if err != nil || !tok.Valid {
		return model.Identity{}, ErrInvalidSession
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return model.Identity{}, ErrInvalidSession
	}
	return checkIdentity(model.Identity{
		ID:        uid,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Role:      claims.Role,
	})
}

// checkIdentity rejects partial identities so a truncated or hand-edited
// cookie never yields a half-populated caller.
func checkIdentity(id model.Identity) (model.Identity, error) {
	if id.ID == 0 || id.Email == "" || !model.ValidRole(id.Role) {
		return model.Identity{}, ErrInvalidSession
	}
	return id, nil
}
