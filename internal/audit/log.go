// Package audit keeps the write-once record of every catalog commit: one JSON document per
// import plus an append-only JSON-lines log.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/catalog-service/internal/storage"
	"github.com/kosarica/catalog-service/internal/types"
)

// ErrNotFound is returned for an unknown import id
var ErrNotFound = errors.New("audit record not found")

// ErrExists is returned when a record with the same id was already written
var ErrExists = errors.New("audit record already exists")

// Record is the immutable audit entry of one commit
type Record struct {
	ID            string              `json:"id"`
	VendorCode    string              `json:"vendorCode"`
	Timestamp     time.Time           `json:"timestamp"`
	ImportedBy    string              `json:"importedBy"`
	EffectiveFrom string              `json:"effectiveFrom"`
	SafetyToggles types.SafetyToggles `json:"safetyToggles"`
	Success       bool                `json:"success"`
	Summary       types.CommitSummary `json:"summary"`
	Added         []string            `json:"added"`
	Updated       []string            `json:"updated"`
	PriceChanged  []string            `json:"priceChanged"`
	Discontinued  []string            `json:"discontinued"`
	Errors        []types.CommitError `json:"errors,omitempty"`
}

// Log stores audit records in blob storage
type Log struct {
	store  storage.Storage
	logger zerolog.Logger
}

// NewLog creates an audit log on the given storage
func NewLog(store storage.Storage, logger zerolog.Logger) *Log {
	return &Log{
		store:  store,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Write stores the record file and appends one line to the log. Records are write-once.
func (l *Log) Write(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("audit record id is required")
	}

	key := storage.AuditRecordKey(rec.ID)
	exists, err := l.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check audit record %s: %w", rec.ID, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}

	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	if err := l.store.Put(ctx, key, doc); err != nil {
		return fmt.Errorf("failed to write audit record %s: %w", rec.ID, err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit line: %w", err)
	}
	if err := l.store.Append(ctx, storage.AuditLogKey, append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}

	l.logger.Info().
		Str("importId", rec.ID).
		Str("vendor", rec.VendorCode).
		Bool("success", rec.Success).
		Msg("Audit record written")

	return nil
}

// Get reads one record by import id
func (l *Log) Get(ctx context.Context, importID string) (*Record, error) {
	content, err := l.store.Get(ctx, storage.AuditRecordKey(importID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, importID)
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(content, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode audit record %s: %w", importID, err)
	}
	return &rec, nil
}

// List returns records newest first, optionally filtered by vendor. limit <= 0 means no limit.
func (l *Log) List(ctx context.Context, vendorCode string, limit int) ([]Record, error) {
	keys, err := l.store.List(ctx, storage.AuditRecordDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(key, storage.AuditRecordDir), ".json")
		rec, err := l.Get(ctx, id)
		if err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Skipping unreadable audit record")
			continue
		}
		if vendorCode != "" && rec.VendorCode != vendorCode {
			continue
		}
		records = append(records, *rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
