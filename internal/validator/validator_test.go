package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,is-otp-purpose"`
}

type listRequest struct {
	Category string `json:"category" validate:"omitempty,is-job-category"`
	Type     string `json:"type" validate:"omitempty,is-target-type"`
}

func TestValidate_UsesJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(&otpRequest{Email: "not-an-email", Purpose: "hack"})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.Errors, "email")
	assert.Contains(t, vErr.Errors, "purpose")
	assert.Equal(t, "Must be one of: signup, login, reset_password", vErr.Errors["purpose"])
}

func TestValidate_CustomRules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&otpRequest{Email: "a@b.cn", Purpose: "reset_password"}))
	assert.NoError(t, v.Validate(&listRequest{}))
	assert.NoError(t, v.Validate(&listRequest{Category: "intern", Type: "referral"}))
	assert.Error(t, v.Validate(&listRequest{Category: "fulltime"}))
	assert.Error(t, v.Validate(&listRequest{Type: "user"}))
}
