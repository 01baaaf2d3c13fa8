package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Type     string `form:"type" validate:"oneof=user admin"`
	Page     int    `validate:"gte=0"`
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	v := New()

	err := v.Validate(signup{Email: "nope", Password: "short", Type: "root", Page: -1})
	require.Error(t, err)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "must be a valid email address", fe["email"])
	assert.Equal(t, "must be at least 8 characters", fe["password"])
	assert.Equal(t, "must be one of: user admin", fe["type"])
	assert.Equal(t, "must be greater than or equal to 0", fe["Page"])
	assert.Contains(t, err.Error(), "email must be a valid email address")
}

func TestValidatePasses(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(signup{Email: "a@b.co", Password: "longenough", Type: "user"}))
	assert.NoError(t, v.Echo().Validate(signup{Email: "a@b.co", Password: "longenough", Type: "admin"}))
}
