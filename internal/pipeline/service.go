// Package pipeline runs vendor catalog imports end to end. Preview detects the payload
// shape, normalizes rows, diffs them against the persisted catalog, applies the safety
// toggles and stages the result; Commit applies a staged preview exactly once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/catalog-service/internal/analyzer"
	"github.com/kosarica/catalog-service/internal/catalog"
	"github.com/kosarica/catalog-service/internal/commit"
	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/idgen"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/metrics"
	"github.com/kosarica/catalog-service/internal/normalize"
	"github.com/kosarica/catalog-service/internal/payload"
	"github.com/kosarica/catalog-service/internal/shape"
	"github.com/kosarica/catalog-service/internal/staging"
	"github.com/kosarica/catalog-service/internal/telemetry"
	"github.com/kosarica/catalog-service/internal/types"
)

// Defaults applied by NewService
const (
	DefaultStagingTTL = 24 * time.Hour
	DefaultCurrency   = "USD"
)

// Preview outcomes used as metric labels
const (
	outcomeStaged          = "staged"
	outcomeShapeError      = "shape_error"
	outcomeValidationError = "validation_error"
	outcomeError           = "error"
)

// Dependencies are the collaborators of a Service
type Dependencies struct {
	Mappings *mapping.Repository
	Catalog  catalog.Store
	Staging  staging.Store
	Engine   *commit.Engine
	IDs      commit.IDGenerator
	Clock    commit.Clock
	Logger   zerolog.Logger
}

// Options tune a Service
type Options struct {
	StagingTTL      time.Duration
	SampleSize      int
	DefaultCurrency string
}

// Service orchestrates analyze, preview and commit
type Service struct {
	mappings *mapping.Repository
	catalog  catalog.Store
	staging  staging.Store
	engine   *commit.Engine
	ids      commit.IDGenerator
	clock    commit.Clock
	logger   zerolog.Logger
	opts     Options
	tracer   trace.Tracer
}

// NewService wires a Service. Mappings may be nil when every preview carries an inline
// mapping.
func NewService(deps Dependencies, opts Options) *Service {
	if deps.IDs == nil {
		deps.IDs = idgen.New()
	}
	if deps.Clock == nil {
		deps.Clock = commit.SystemClock{}
	}
	if opts.StagingTTL <= 0 {
		opts.StagingTTL = DefaultStagingTTL
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = analyzer.DefaultSampleSize
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = DefaultCurrency
	}

	return &Service{
		mappings: deps.Mappings,
		catalog:  deps.Catalog,
		staging:  deps.Staging,
		engine:   deps.Engine,
		ids:      deps.IDs,
		clock:    deps.Clock,
		logger:   deps.Logger.With().Str("component", "pipeline").Logger(),
		opts:     opts,
		tracer:   telemetry.Tracer(),
	}
}

// AnalyzeResult is the column profile plus a draft mapping built from the suggestions
type AnalyzeResult struct {
	Analysis *analyzer.Analysis  `json:"analysis"`
	Draft    *mapping.Definition `json:"draftMapping"`
}

// Analyze profiles a raw payload. A payload whose shape cannot be detected returns
// *shape.ShapeError.
func (s *Service) Analyze(ctx context.Context, vendorCode string, raw []byte, opts payload.Options) (*AnalyzeResult, error) {
	_, span := s.tracer.Start(ctx, "pipeline.analyze", trace.WithAttributes(attribute.String("vendor", vendorCode)))
	defer span.End()

	detected, err := payload.Decode(raw, opts)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	analysis := analyzer.Analyze(detected, s.opts.SampleSize)
	return &AnalyzeResult{
		Analysis: analysis,
		Draft:    analyzer.DraftMapping(vendorCode, analysis, s.opts.DefaultCurrency),
	}, nil
}

// PreviewRequest is one preview. Mapping, when set, is used as is; otherwise the stored
// mapping for VendorCode is loaded (MappingVersion 0 means latest).
type PreviewRequest struct {
	VendorCode     string
	Payload        []byte
	PayloadOptions payload.Options
	Mapping        *mapping.Definition
	MappingVersion int
	Toggles        types.SafetyToggles
	RequestedBy    string
}

// Preview builds, filters and stages an import preview. Errors are *shape.ShapeError for an
// undetectable payload and *mapping.ValidationError for an unusable mapping; nothing is
// staged in either case.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*staging.StagedImport, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.preview", trace.WithAttributes(attribute.String("vendor", req.VendorCode)))
	defer span.End()

	imp, err := s.preview(ctx, req)
	metrics.PreviewsTotal.WithLabelValues(req.VendorCode, previewOutcome(err)).Inc()
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return imp, nil
}

func (s *Service) preview(ctx context.Context, req PreviewRequest) (*staging.StagedImport, error) {
	logger := s.logger.With().Str("vendor", req.VendorCode).Logger()

	def, err := s.resolveMapping(ctx, req)
	if err != nil {
		return nil, err
	}

	opts := req.PayloadOptions
	if opts.Shape == "" && def.Shape != nil {
		opts.Shape = *def.Shape
	}
	detected, err := payload.Decode(req.Payload, opts)
	if err != nil {
		return nil, err
	}
	if detected.Skipped > 0 {
		logger.Warn().Int("skipped", detected.Skipped).Msg("Ignored non-object array elements")
	}

	normalizer, err := normalize.New(def, logger)
	if err != nil {
		return nil, err
	}

	var (
		existing   []types.Product
		normalized *normalize.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, span := s.tracer.Start(gctx, "pipeline.load_catalog")
		defer span.End()
		products, err := s.catalog.LoadVendor(gctx, req.VendorCode)
		if err != nil {
			recordSpanError(span, err)
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		existing = products
		return nil
	})
	g.Go(func() error {
		_, span := s.tracer.Start(gctx, "pipeline.normalize")
		defer span.End()
		normalized = normalizer.Normalize(detected.Rows)
		span.SetAttributes(
			attribute.Int("rows", len(detected.Rows)),
			attribute.Int("skipped", len(normalized.Skipped)),
		)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, skip := range normalized.Skipped {
		metrics.RowsSkipped.WithLabelValues(req.VendorCode, skip.Reason).Inc()
	}

	_, diffSpan := s.tracer.Start(ctx, "pipeline.diff")
	full := diff.Generate(req.VendorCode, normalized.Products, existing, diff.Options{
		DetectDiscontinued: req.Toggles.MarkMissingAsDiscontinued,
	})
	filtered := diff.ApplyToggles(full, req.Toggles)
	diffSpan.End()

	observeBuckets(filtered)

	now := s.clock.Now()
	imp := &staging.StagedImport{
		ID:             s.ids.NewID(idgen.PrefixStaged),
		VendorCode:     req.VendorCode,
		State:          staging.StateStaged,
		MappingVersion: def.Version,
		Toggles:        req.Toggles,
		Preview:        filtered,
		SkippedRows:    normalized.Skipped,
		CreatedBy:      req.RequestedBy,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.opts.StagingTTL),
	}
	if err := s.staging.Save(ctx, imp); err != nil {
		return nil, fmt.Errorf("failed to stage import: %w", err)
	}

	logger.Info().
		Str("stagedId", imp.ID).
		Int("incoming", filtered.Summary.TotalIncoming).
		Int("adds", filtered.Summary.NewProducts).
		Int("updates", filtered.Summary.UpdatedProducts).
		Int("priceChanges", filtered.Summary.PriceOnlyChanges).
		Int("discontinued", filtered.Summary.Discontinued).
		Int("skippedRows", len(normalized.Skipped)).
		Msg("Import preview staged")

	return imp, nil
}

func (s *Service) resolveMapping(ctx context.Context, req PreviewRequest) (*mapping.Definition, error) {
	if req.Mapping != nil {
		if req.Mapping.VendorCode != req.VendorCode {
			return nil, &mapping.ValidationError{Messages: []string{
				fmt.Sprintf("mapping vendorCode %q does not match import vendor %q", req.Mapping.VendorCode, req.VendorCode),
			}}
		}
		return req.Mapping, nil
	}
	if s.mappings == nil {
		return nil, fmt.Errorf("%w: no mapping supplied for vendor %s", mapping.ErrNotFound, req.VendorCode)
	}
	if req.MappingVersion > 0 {
		return s.mappings.Version(ctx, req.VendorCode, req.MappingVersion)
	}
	return s.mappings.Latest(ctx, req.VendorCode)
}

// Get returns a staged import
func (s *Service) Get(ctx context.Context, id string) (*staging.StagedImport, error) {
	return s.staging.Get(ctx, id)
}

// CommitRequest carries the operator inputs of a commit
type CommitRequest struct {
	ImportedBy    string
	EffectiveFrom time.Time
}

// Commit applies a staged import. The returned error is staging.ErrNotFound or
// staging.ErrNotStaged when the import cannot be committed; every other outcome, including a
// catalog load or write failure, is reported in the CommitResult.
func (s *Service) Commit(ctx context.Context, id string, req CommitRequest) (*types.CommitResult, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.commit", trace.WithAttributes(attribute.String("stagedId", id)))
	defer span.End()

	imp, err := s.staging.Transition(ctx, id, staging.StateStaged, staging.StateCommitting, nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("vendor", imp.VendorCode))
	logger := s.logger.With().Str("stagedId", id).Str("vendor", imp.VendorCode).Logger()

	start := time.Now()
	result, fatal := s.engine.Commit(ctx, commit.Request{
		Preview:       imp.Preview,
		Toggles:       imp.Toggles,
		ImportedBy:    req.ImportedBy,
		EffectiveFrom: req.EffectiveFrom,
	})
	metrics.CommitDuration.WithLabelValues(imp.VendorCode).Observe(time.Since(start).Seconds())
	metrics.CommitsTotal.WithLabelValues(imp.VendorCode, metrics.CommitOutcome(result)).Inc()

	final := staging.StateCommitted
	if fatal != nil {
		final = staging.StateFailed
		recordSpanError(span, fatal)
		logger.Error().Err(fatal).Str("importId", result.ImportID).Msg("Commit aborted")
	}

	expires := s.clock.Now().Add(s.opts.StagingTTL)
	_, err = s.staging.Transition(ctx, id, staging.StateCommitting, final, func(si *staging.StagedImport) {
		si.Result = result
		si.ExpiresAt = expires
	})
	if err != nil {
		logger.Error().Err(err).Str("importId", result.ImportID).Msg("Failed to record commit outcome on staged import")
	}

	return result, nil
}

// InvalidateCatalog drops the cached catalog, if the catalog store caches
func (s *Service) InvalidateCatalog() bool {
	cached, ok := s.catalog.(*catalog.CachedStore)
	if !ok {
		return false
	}
	cached.Invalidate()
	metrics.CatalogCacheInvalidations.Inc()
	s.logger.Info().Msg("Catalog cache invalidated")
	return true
}

func previewOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeStaged
	case shape.IsShapeError(err):
		return outcomeShapeError
	case mapping.IsValidationError(err):
		return outcomeValidationError
	default:
		return outcomeError
	}
}

func observeBuckets(p *diff.ImportPreview) {
	metrics.DiffBucketSize.WithLabelValues(string(diff.KindAdd)).Observe(float64(len(p.Adds)))
	metrics.DiffBucketSize.WithLabelValues(string(diff.KindUpdate)).Observe(float64(len(p.Updates)))
	metrics.DiffBucketSize.WithLabelValues(string(diff.KindPriceChange)).Observe(float64(len(p.PriceChanges)))
	metrics.DiffBucketSize.WithLabelValues(string(diff.KindDiscontinue)).Observe(float64(len(p.Discontinuations)))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// IsNotFound reports whether err means a missing staged import or mapping
func IsNotFound(err error) bool {
	return errors.Is(err, staging.ErrNotFound) || errors.Is(err, mapping.ErrNotFound)
}
