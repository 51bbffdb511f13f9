package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Alpha", "alpha"},
		{"Alpha Series (2024)", "alpha-series-2024"},
		{"  Oak & Walnut  ", "oak-walnut"},
		{"snake_case_name", "snake-case-name"},
		{"--Already-Slugged--", "already-slugged"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}
