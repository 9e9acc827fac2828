package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/types"
)

func TestValidateStructUsesJSONNames(t *testing.T) {
	errs := ValidateStruct(&types.CreateUserRequest{
		Email:    "not-an-email",
		Username: "bad name!",
		Password: "short",
	})
	require.NotNil(t, errs)

	assert.Equal(t, []string{"enter a valid email address"}, errs["email"])
	assert.True(t, errs.Has("username"))
	assert.True(t, errs.Has("first_name"))
	assert.True(t, errs.Has("last_name"))
	assert.Equal(t, []string{"must be at least 8 characters"}, errs["password"])
}

func TestFieldErrorsError(t *testing.T) {
	fe := FieldErrors{}
	assert.NoError(t, fe.OrNil())

	fe.Add("tags", "at least one tag is required")
	fe.Add("amount", "amount must be at least 1")

	err := fe.OrNil()
	require.Error(t, err)
	assert.Equal(t, "validation failed: amount: amount must be at least 1; tags: at least one tag is required", err.Error())
}
