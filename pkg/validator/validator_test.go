package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type createUserPayload struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(createUserPayload{Username: "carol", Email: "carol@example.com"})
	require.NoError(t, err)
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(createUserPayload{Username: "ab", Email: "nope"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 2)

	fields := []string{failures[0].Field, failures[1].Field}
	require.Contains(t, fields, "username")
	require.Contains(t, fields, "email")
}
