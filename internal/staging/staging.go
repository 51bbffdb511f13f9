// Package staging holds previews between the preview and commit steps of an import.
// A staged import moves staged -> committing -> committed | failed exactly once.
package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/normalize"
	"github.com/kosarica/catalog-service/internal/types"
)

var (
	// ErrNotFound is returned for unknown or expired staged imports
	ErrNotFound = errors.New("staged import not found")
	// ErrNotStaged is returned when a transition starts from the wrong state
	ErrNotStaged = errors.New("import is not in the expected state")
)

// State of a staged import
type State string

const (
	StateStaged     State = "staged"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

// StagedImport is a filtered preview waiting for an explicit commit
type StagedImport struct {
	ID             string              `json:"id"`
	VendorCode     string              `json:"vendorCode"`
	State          State               `json:"state"`
	MappingVersion int                 `json:"mappingVersion,omitempty"`
	Toggles        types.SafetyToggles `json:"safetyToggles"`
	Preview        *diff.ImportPreview `json:"preview"`
	SkippedRows    []normalize.RowSkip `json:"skippedRows"`
	CreatedBy      string              `json:"createdBy,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	ExpiresAt      time.Time           `json:"expiresAt"`
	Result         *types.CommitResult `json:"result,omitempty"`
}

// Expired reports whether the import is past its expiry at now
func (s *StagedImport) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists staged imports
type Store interface {
	// Save stores a new staged import
	Save(ctx context.Context, imp *StagedImport) error
	// Get returns a staged import; expired imports yield ErrNotFound
	Get(ctx context.Context, id string) (*StagedImport, error)
	// Transition atomically moves an import from one state to another. mutate, when set,
	// edits the import before it is stored. A wrong current state yields ErrNotStaged.
	Transition(ctx context.Context, id string, from, to State, mutate func(*StagedImport)) (*StagedImport, error)
	// DeleteExpired removes imports expired at now and returns how many were removed
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

func wrongState(id string, current, want State) error {
	return fmt.Errorf("%w: import %s is %s, expected %s", ErrNotStaged, id, current, want)
}
