package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kosarica/catalog-service/internal/types"
)

func TestCommitOutcome(t *testing.T) {
	assert.Equal(t, "success", CommitOutcome(&types.CommitResult{Success: true}))
	assert.Equal(t, "partial", CommitOutcome(&types.CommitResult{
		Errors: []types.CommitError{{ProductID: "acme:A", Error: "boom"}},
	}))
	assert.Equal(t, "failed", CommitOutcome(&types.CommitResult{
		Errors: []types.CommitError{{ProductID: "acme:A"}, {ProductID: types.SystemErrorID}},
	}))
}
