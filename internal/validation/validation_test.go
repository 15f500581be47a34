package validation_test

import (
	"testing"

	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
	"github.com/myrjola/manuscript/internal/validation"
	"github.com/stretchr/testify/require"
)

func TestValidator_Struct(t *testing.T) {
	type input struct {
		Email    string `json:"email"    validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		Pace     string `json:"pace"     validate:"omitempty,oneof=Slow Medium Fast"`
		Target   int    `json:"targetWordCount" validate:"min=1"`
	}
	tests := []struct {
		name    string
		input   input
		wantMsg string
	}{
		{name: "valid", input: input{Email: "a@example.com", Password: "password", Target: 1}},
		{name: "missing email", input: input{Password: "password", Target: 1}, wantMsg: "email is required"},
		{
			name:    "malformed email",
			input:   input{Email: "nope", Password: "password", Target: 1},
			wantMsg: "invalid email address",
		},
		{
			name:    "short password",
			input:   input{Email: "a@example.com", Password: "short", Target: 1},
			wantMsg: "password must be at least 8 characters",
		},
		{
			name:    "unknown pace",
			input:   input{Email: "a@example.com", Password: "password", Pace: "Glacial", Target: 1},
			wantMsg: "pace must be one of Slow Medium Fast",
		},
		{
			name:    "number below minimum",
			input:   input{Email: "a@example.com", Password: "password"},
			wantMsg: "targetWordCount must be at least 1",
		},
	}
	v := validation.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, models.ErrInvalidInput)
			msg, ok := errors.MessageFor(err, models.ErrInvalidInput)
			require.True(t, ok)
			require.Equal(t, tt.wantMsg, msg)
		})
	}
}
