package normalize

import (
	"strings"

	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/types"
)

var defaultStatuses = map[string]types.ProductStatus{
	"active":       types.StatusActive,
	"a":            types.StatusActive,
	"1":            types.StatusActive,
	"true":         types.StatusActive,
	"yes":          types.StatusActive,
	"discontinued": types.StatusDiscontinued,
	"d":            types.StatusDiscontinued,
	"disc":         types.StatusDiscontinued,
	"inactive":     types.StatusDiscontinued,
	"0":            types.StatusDiscontinued,
	"false":        types.StatusDiscontinued,
	"no":           types.StatusDiscontinued,
	"archived":     types.StatusArchived,
	"archive":      types.StatusArchived,
	"arch":         types.StatusArchived,
}

// NormalizeStatus maps a raw status value onto the canonical enum. The remap table is
// consulted first (exact match, then case-insensitive); anything unrecognized is active.
func NormalizeStatus(value any, valueMap map[string]string) types.ProductStatus {
	if value == nil {
		return types.StatusActive
	}
	raw := strings.TrimSpace(mapping.Stringify(value))

	if len(valueMap) > 0 {
		if mapped, ok := valueMap[raw]; ok {
			raw = mapped
		} else {
			for from, to := range valueMap {
				if strings.EqualFold(from, raw) {
					raw = to
					break
				}
			}
		}
	}

	if status, ok := defaultStatuses[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return types.StatusActive
}
