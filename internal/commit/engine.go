// Package commit applies a filtered import preview to the persisted catalog and records the
// outcome in the audit log.
package commit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/catalog-service/internal/audit"
	"github.com/kosarica/catalog-service/internal/catalog"
	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/idgen"
	"github.com/kosarica/catalog-service/internal/metrics"
	"github.com/kosarica/catalog-service/internal/types"
)

// EffectiveDateLayout is the format of effectiveFrom stamps written into specs
const EffectiveDateLayout = "2006-01-02"

// ParseEffectiveFrom accepts a YYYY-MM-DD date or an RFC 3339 timestamp. Empty input yields
// the zero time, which Commit treats as the commit time.
func ParseEffectiveFrom(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(EffectiveDateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("effectiveFrom must be YYYY-MM-DD or RFC 3339: %q", value)
	}
	return t.UTC(), nil
}

// Clock supplies commit timestamps
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies unique import ids
type IDGenerator interface {
	NewID(prefix string) string
}

// AuditWriter persists audit records
type AuditWriter interface {
	Write(ctx context.Context, rec *audit.Record) error
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FatalError is a batch-level failure: the catalog could not be loaded or written
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("commit aborted: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Request is one commit of a filtered preview
type Request struct {
	Preview    *diff.ImportPreview
	Toggles    types.SafetyToggles
	ImportedBy string
	// EffectiveFrom stamps price, status and introduction changes; zero means the commit time
	EffectiveFrom time.Time
	// ImportID is generated when empty
	ImportID string
}

// Engine applies previews. Commits through one engine are serialized; separate processes
// writing the same store are not coordinated.
type Engine struct {
	store  catalog.Store
	audit  AuditWriter
	clock  Clock
	ids    IDGenerator
	logger zerolog.Logger

	mu sync.Mutex
}

// NewEngine wires the engine collaborators
func NewEngine(store catalog.Store, auditWriter AuditWriter, clock Clock, ids IDGenerator, logger zerolog.Logger) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = idgen.New()
	}
	return &Engine{
		store:  store,
		audit:  auditWriter,
		clock:  clock,
		ids:    ids,
		logger: logger.With().Str("component", "commit").Logger(),
	}
}

// Commit applies req.Preview. The returned result is never nil. The error is a *FatalError
// when the catalog could not be loaded or written; per-product failures only appear in
// result.Errors.
func (e *Engine) Commit(ctx context.Context, req Request) (*types.CommitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	importID := req.ImportID
	if importID == "" {
		importID = e.ids.NewID(idgen.PrefixImport)
	}
	effective := req.EffectiveFrom
	if effective.IsZero() {
		effective = now
	}

	result := &types.CommitResult{
		ImportID:  importID,
		Timestamp: now,
		Errors:    make([]types.CommitError, 0),
	}

	logger := e.logger.With().Str("importId", importID).Logger()
	if req.Preview == nil {
		result.Errors = append(result.Errors, types.CommitError{ProductID: types.SystemErrorID, Error: "no preview to commit"})
		result.Summary.Failed = len(result.Errors)
		return result, &FatalError{Op: "validate request", Err: fmt.Errorf("preview is required")}
	}
	logger = logger.With().Str("vendor", req.Preview.VendorCode).Logger()

	products, err := e.store.LoadAll(ctx)
	if err != nil {
		fatal := &FatalError{Op: "load catalog", Err: err}
		logger.Error().Err(err).Msg("Failed to load catalog, commit aborted")
		result.Errors = append(result.Errors, types.CommitError{ProductID: types.SystemErrorID, Error: fatal.Error()})
		result.Summary.Failed = len(result.Errors)
		return result, fatal
	}

	a := newApplier(products, req.Toggles, effective.UTC().Format(EffectiveDateLayout))
	applied := a.apply(req.Preview, func(productID string, err error) {
		metrics.CommitItemErrors.WithLabelValues(req.Preview.VendorCode).Inc()
		logger.Error().Err(err).Str("productId", productID).Msg("Failed to apply product change")
		result.Errors = append(result.Errors, types.CommitError{ProductID: productID, Error: err.Error()})
	})

	var fatal error
	if err := e.store.SaveAll(ctx, a.products); err != nil {
		fatal = &FatalError{Op: "write catalog", Err: err}
		logger.Error().Err(err).Msg("Failed to write catalog, applied changes discarded")
		result.Errors = append(result.Errors, types.CommitError{ProductID: types.SystemErrorID, Error: fatal.Error()})
		applied = appliedIDs{}
	}

	result.Summary = types.CommitSummary{
		Added:        len(applied.added),
		Updated:      len(applied.updated),
		PriceChanged: len(applied.priceChanged),
		Discontinued: len(applied.discontinued),
		Failed:       len(result.Errors),
	}
	result.Success = len(result.Errors) == 0

	e.writeAudit(ctx, logger, req, result, applied, effective)

	logger.Info().
		Bool("success", result.Success).
		Int("added", result.Summary.Added).
		Int("updated", result.Summary.Updated).
		Int("priceChanged", result.Summary.PriceChanged).
		Int("discontinued", result.Summary.Discontinued).
		Int("failed", result.Summary.Failed).
		Msg("Commit finished")

	return result, fatal
}

// writeAudit never fails the commit; errors are logged only
func (e *Engine) writeAudit(ctx context.Context, logger zerolog.Logger, req Request, result *types.CommitResult, applied appliedIDs, effective time.Time) {
	if e.audit == nil {
		return
	}

	rec := &audit.Record{
		ID:            result.ImportID,
		VendorCode:    req.Preview.VendorCode,
		Timestamp:     result.Timestamp,
		ImportedBy:    req.ImportedBy,
		EffectiveFrom: effective.UTC().Format(EffectiveDateLayout),
		SafetyToggles: req.Toggles,
		Success:       result.Success,
		Summary:       result.Summary,
		Added:         orEmpty(applied.added),
		Updated:       orEmpty(applied.updated),
		PriceChanged:  orEmpty(applied.priceChanged),
		Discontinued:  orEmpty(applied.discontinued),
		Errors:        result.Errors,
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.AuditWriteFailures.Inc()
			logger.Error().Interface("panic", r).Msg("Audit write panicked")
		}
	}()
	if err := e.audit.Write(ctx, rec); err != nil {
		metrics.AuditWriteFailures.Inc()
		logger.Error().Err(err).Msg("Failed to write audit record")
	}
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
