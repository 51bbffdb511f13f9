package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kosarica/catalog-service/internal/types"
)

func TestNormalizeStatusDefaults(t *testing.T) {
	tests := []struct {
		input any
		want  types.ProductStatus
	}{
		{"Active", types.StatusActive},
		{"A", types.StatusActive},
		{"yes", types.StatusActive},
		{true, types.StatusActive},
		{1.0, types.StatusActive},
		{"Discontinued", types.StatusDiscontinued},
		{"disc", types.StatusDiscontinued},
		{"inactive", types.StatusDiscontinued},
		{false, types.StatusDiscontinued},
		{"0", types.StatusDiscontinued},
		{"ARCH", types.StatusArchived},
		{"archived", types.StatusArchived},
		{"something else", types.StatusActive},
		{nil, types.StatusActive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.input, nil), "input %v", tt.input)
	}
}

func TestNormalizeStatusValueMapFirst(t *testing.T) {
	valueMap := map[string]string{"NLA": "discontinued", "Y": "archived"}

	assert.Equal(t, types.StatusDiscontinued, NormalizeStatus("NLA", valueMap))
	assert.Equal(t, types.StatusDiscontinued, NormalizeStatus("nla", valueMap))
	// "y" is not a default alias, but the remap table turns it into archived
	assert.Equal(t, types.StatusArchived, NormalizeStatus("Y", valueMap))
	assert.Equal(t, types.StatusActive, NormalizeStatus("Active", valueMap))
}
