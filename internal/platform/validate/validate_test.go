// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Jane", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	// Multi-rule validation
	err := v.
		Required("username", "tai").
		MinLen("username", "tai", 3).
		MaxLen("username", "tai", 10).
		Email("email", "jane@alphasource.app").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "").       // Fails
		MinLen("username", "a", 5).     // Fails
		Email("email", "not-an-email"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}

/*
TestValidator_OneOf checks membership validation used for role assignment.
*/
func TestValidator_OneOf(t *testing.T) {
	assert.False(t, (&validate.Validator{}).OneOf("role", "staff", "user", "staff").HasErrors())
	assert.True(t, (&validate.Validator{}).OneOf("role", "owner", "user", "staff").HasErrors())
}

/*
TestValidator_UUID checks path identifier validation.
*/
func TestValidator_UUID(t *testing.T) {
	assert.False(t, (&validate.Validator{}).UUID("id", "0190a6b2-7c3e-7d4f-8a1b-2c3d4e5f6a7b").HasErrors())
	assert.False(t, (&validate.Validator{}).UUID("id", "0190A6B2-7C3E-7D4F-8A1B-2C3D4E5F6A7B").HasErrors())
	assert.True(t, (&validate.Validator{}).UUID("id", "42").HasErrors())
}

/*
TestValidator_URL tests the absolute http(s) URL rule used by profile images.
*/
func TestValidator_URL(t *testing.T) {
	assert.False(t, (&validate.Validator{}).URL("img", "https://cdn.alphasource.app/a.png").HasErrors())
	assert.True(t, (&validate.Validator{}).URL("img", "javascript:alert(1)").HasErrors())
	assert.True(t, (&validate.Validator{}).URL("img", "/relative.png").HasErrors())
}
