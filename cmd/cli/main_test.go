package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/catalog-service/internal/audit"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/staging"
	"github.com/kosarica/catalog-service/internal/types"
)

const acmeCSV = `sku,name,collection,price
A1,Chair,Lounge,100
B2,Table,Lounge,250
`

const acmeRepricedCSV = `sku,name,collection,price
A1,Lounge Chair,Lounge,120
B2,Table,Lounge,250
`

const acmeMappingJSON = `{
  "vendorCode": "acme",
  "shape": "array",
  "sku": {"type": "column", "column": "sku"},
  "name": {"type": "column", "column": "name"},
  "collection": {"type": "column", "column": "collection"},
  "prices": [
    {"type": "column", "column": "price", "transforms": [{"type": "numeric-parse"}], "tier": "MSRP", "currency": "USD"}
  ]
}`

// newWorkspace switches into a temp dir holding vendor files; the default local storage
// lands in ./data below it.
func newWorkspace(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORAGE_PATH", filepath.Join(dir, "data"))

	files := map[string]string{
		"acme.csv":          acmeCSV,
		"acme-repriced.csv": acmeRepricedCSV,
		"acme-mapping.json": acmeMappingJSON,
		"bad-mapping.json":  `{"vendorCode": "acme", "prices": []}`,
		"acme-flat.json":    `{"A1": {"name": "Chair", "collection": "Lounge", "price": "100"}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

// resetFlags restores every flag to its default so runs do not leak into each other
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportFlow(t *testing.T) {
	newWorkspace(t)

	out, err := runCLI(t, "mapping", "validate", "acme-mapping.json")
	require.NoError(t, err)
	assert.Contains(t, out, "mapping for acme is valid")

	out, err = runCLI(t, "mapping", "save", "acme-mapping.json", "--updated-by", "jane")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved mapping for acme as version 1")

	out, err = runCLI(t, "preview", "acme.csv", "--vendor", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "acme:A1")
	assert.Contains(t, out, "add")

	out, err = runCLI(t, "commit", "acme.csv", "--vendor", "acme", "--imported-by", "jane")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing applied")

	out, err = runCLI(t, "commit", "acme.csv", "--vendor", "acme", "--imported-by", "jane",
		"--effective-from", "2026-03-01", "--yes", "--json")
	require.NoError(t, err)
	var result types.CommitResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Summary.Added)

	out, err = runCLI(t, "preview", "acme.csv", "--vendor", "acme", "--json")
	require.NoError(t, err)
	var staged staging.StagedImport
	require.NoError(t, json.Unmarshal([]byte(out), &staged))
	assert.Equal(t, 2, staged.Preview.Summary.Unchanged)

	out, err = runCLI(t, "commit", "acme.csv", "--vendor", "acme", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes to apply")

	out, err = runCLI(t, "audit", "list", "--vendor", "acme")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], result.ImportID)
	assert.Contains(t, lines[1], "jane")

	out, err = runCLI(t, "audit", "show", result.ImportID)
	require.NoError(t, err)
	var rec audit.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "2026-03-01", rec.EffectiveFrom)
	assert.ElementsMatch(t, []string{"acme:A1", "acme:B2"}, rec.Added)

	out, err = runCLI(t, "mapping", "show", "acme", "--version", "1")
	require.NoError(t, err)
	var def mapping.Definition
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Equal(t, 1, def.Version)
	assert.Equal(t, "jane", def.UpdatedBy)
}

func TestPreviewToggleFlags(t *testing.T) {
	newWorkspace(t)

	_, err := runCLI(t, "commit", "acme.csv", "--vendor", "acme", "--mapping", "acme-mapping.json", "--yes")
	require.NoError(t, err)

	tests := []struct {
		name         string
		flags        []string
		updated      int
		priceChanges int
	}{
		{name: "no toggles", updated: 1, priceChanges: 0},
		{name: "prices only", flags: []string{"--prices-only"}, updated: 0, priceChanges: 1},
		{name: "specs only", flags: []string{"--specs-only"}, updated: 1, priceChanges: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"preview", "acme-repriced.csv", "--vendor", "acme",
				"--mapping", "acme-mapping.json", "--json"}, tt.flags...)
			out, err := runCLI(t, args...)
			require.NoError(t, err)

			var staged staging.StagedImport
			require.NoError(t, json.Unmarshal([]byte(out), &staged))
			assert.Equal(t, tt.updated, staged.Preview.Summary.UpdatedProducts)
			assert.Equal(t, tt.priceChanges, staged.Preview.Summary.PriceOnlyChanges)
			assert.Equal(t, tt.name == "prices only", staged.Toggles.PricesOnly)
			assert.Equal(t, tt.name == "specs only", staged.Toggles.SpecsOnly)
		})
	}
}

func TestAnalyzeDraftsMapping(t *testing.T) {
	newWorkspace(t)

	out, err := runCLI(t, "analyze", "acme.csv", "--vendor", "acme", "--json")
	require.NoError(t, err)

	var def mapping.Definition
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Equal(t, "acme", def.VendorCode)
	require.NotNil(t, def.SKU)
	assert.Equal(t, "sku", def.SKU.Column)
}

func TestCommandErrors(t *testing.T) {
	newWorkspace(t)

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{
			name:    "missing vendor",
			args:    []string{"preview", "acme.csv"},
			message: `required flag(s) "vendor" not set`,
		},
		{
			name:    "invalid mapping",
			args:    []string{"mapping", "validate", "bad-mapping.json"},
			message: "mapping is invalid:",
		},
		{
			name:    "bad effective date",
			args:    []string{"commit", "acme.csv", "--vendor", "acme", "--effective-from", "March 1st"},
			message: "effective",
		},
		{
			name:    "unknown format",
			args:    []string{"preview", "acme.csv", "--vendor", "acme", "--format", "xml"},
			message: `unsupported payload format "xml"`,
		},
		{
			name:    "shape mismatch",
			args:    []string{"preview", "acme-flat.json", "--vendor", "acme", "--mapping", "acme-mapping.json"},
			message: "expected array payload, got flat",
		},
		{
			name:    "unknown audit record",
			args:    []string{"audit", "show", "imp_missing"},
			message: "imp_missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
