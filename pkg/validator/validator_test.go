package validator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/validator"
)

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	var errs validator.ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs.Add(validator.ValidationError{Field: "user_id", Message: "field is required"})
	errs.Add(validator.ValidationError{Field: "channel", Message: "must be one of: [email sms]"})
	assert.Equal(t, "validation failed: user_id: field is required; channel: must be one of: [email sms]", errs.Error())
	assert.True(t, errs.Has("channel"))
	assert.False(t, errs.Has("title"))
	assert.Equal(t, []string{"field is required"}, errs.Get("user_id"))
	assert.Equal(t, []string{"user_id", "channel"}, errs.Fields())
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all rules pass", func(t *testing.T) {
		t.Parallel()

		err := validator.Apply(
			validator.RequiredString("user_id", "u1"),
			validator.InList("channel", "email", []string{"email", "sms"}),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()

		err := validator.Apply(
			validator.RequiredString("user_id", "  "),
			validator.RequiredComparable("priority", 0),
			validator.InList("channel", "fax", []string{"email", "sms"}),
		)
		require.Error(t, err)

		verrs := validator.ExtractValidationErrors(err)
		require.Len(t, verrs, 3)
		assert.Equal(t, []string{"user_id", "priority", "channel"}, verrs.Fields())
		assert.Equal(t, "validation.required", verrs[0].TranslationKey)
		assert.Equal(t, "must be one of: [email sms]", verrs[2].Message)
	})
}

func TestExtractValidationErrors(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("invalid input")
	err := fmt.Errorf("%w: %w", sentinel, validator.Apply(validator.RequiredString("title", "")))

	assert.ErrorIs(t, err, sentinel)
	assert.True(t, validator.IsValidationError(err))
	assert.Equal(t, []string{"title"}, validator.ExtractValidationErrors(err).Fields())

	assert.Nil(t, validator.ExtractValidationErrors(nil))
	assert.Nil(t, validator.ExtractValidationErrors(sentinel))
	assert.False(t, validator.IsValidationError(sentinel))
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last+tag@mail.example.org", true},
		{"", false},
		{"user-42", false},
		{"user@localhost", false},
		{"user@example..com", false},
		{"Bob <bob@example.com>", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, validator.ValidEmail("email", tt.value).Check())
		})
	}
}

func TestWhen(t *testing.T) {
	t.Parallel()

	failing := validator.Custom("quiet_hours.start", "must use HH:MM", func() bool { return false })

	assert.True(t, validator.When(false, failing).Check())
	assert.False(t, validator.When(true, failing).Check())
	assert.Equal(t, "quiet_hours.start", validator.When(true, failing).Error.Field)
}
