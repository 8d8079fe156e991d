package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistration(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		exists   bool
		want     FieldErrors
	}{
		{
			name:     "accepted",
			username: "newuser1",
			password: "password1",
			want:     FieldErrors{},
		},
		{
			name:     "restricted username",
			username: "admin",
			password: "password1",
			exists:   true,
			want:     FieldErrors{"username": "Username is restricted, please choose another one"},
		},
		{
			name:     "short password",
			username: "ab",
			password: "short1",
			want:     FieldErrors{"password": "Password must be at least 8 characters long"},
		},
		{
			name: "both required",
			want: FieldErrors{"username": "Username is required", "password": "Password is required"},
		},
		{
			name:     "duplicate",
			username: "juan",
			password: "password1",
			exists:   true,
			want:     FieldErrors{"username": "Username already exists"},
		},
		{
			name:     "symbols",
			username: "juan.cruz",
			password: "pass word1",
			want: FieldErrors{
				"username": "Username must contain only letters and numbers",
				"password": "Password must contain only letters and numbers",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Registration(tt.username, tt.password, tt.exists)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want) == 0, got.OK())
		})
	}
}

func TestFieldErrorsFirst(t *testing.T) {
	errs := FieldErrors{"password": "p", "username": "u"}
	assert.Equal(t, "u", errs.First())
	assert.Equal(t, "", FieldErrors{}.First())
}
