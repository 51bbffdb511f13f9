// Schema Generator
//
// Generates JSON Schema files from the Go types of the import API so other services can
// validate mappings, previews and commit results.
//
// Usage:
//
//	go run ./cmd/schema-gen [output-dir]
//
// Output (default output-dir ./schemas):
//
//	mapping.json
//	imports.json
//	audit.json
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/kosarica/catalog-service/internal/audit"
	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/handlers"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/pipeline"
	"github.com/kosarica/catalog-service/internal/staging"
	"github.com/kosarica/catalog-service/internal/types"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

func main() {
	outputDir := "./schemas"
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range schemaGroups() {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}

	fmt.Println("Schema generation complete!")
}

func schemaGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "mapping",
			Types: []any{
				mapping.Definition{},
				handlers.ValidateMappingResponse{},
				handlers.MappingVersionsResponse{},
			},
			Output: "mapping.json",
		},
		{
			Name: "imports",
			Types: []any{
				// Request types
				handlers.AnalyzeRequest{},
				handlers.PreviewRequest{},
				handlers.CommitRequest{},
				// Response types
				pipeline.AnalyzeResult{},
				diff.ImportPreview{},
				staging.StagedImport{},
				types.CommitResult{},
				handlers.ErrorResponse{},
			},
			Output: "imports.json",
		},
		{
			Name: "audit",
			Types: []any{
				handlers.ListAuditRequest{},
				handlers.ListAuditResponse{},
				audit.Record{},
			},
			Output: "audit.json",
		},
	}
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: false,
		ExpandedStruct: false,
	}

	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)

		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://kosarica.hr/schemas/catalog/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
