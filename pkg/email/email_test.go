package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDisplayName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"kenta.sato@dojo.example", "Kenta Sato"},
		{"kenta@dojo.example", "Kenta"},
		{"kenta_sato+karate@dojo.example", "Kenta Sato Karate"},
		{"x@dojo.example", "X"},
		{"@dojo.example", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveDisplayName(tt.email), tt.email)
	}
}
