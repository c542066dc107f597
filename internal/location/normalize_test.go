package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Côte d'Ivoire", "cote d'ivoire"},
		{"  SÃO   Paulo ", "sao paulo"},
		{"Türkiye", "turkiye"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestSameName(t *testing.T) {
	t.Parallel()

	assert.True(t, SameName("España", "espana"))
	assert.False(t, SameName("Spain", "España"))
}
