package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/catalog-service/internal/commit"
	"github.com/kosarica/catalog-service/internal/diff"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/pipeline"
	"github.com/kosarica/catalog-service/internal/staging"
	"github.com/kosarica/catalog-service/internal/types"
)

var (
	importVendor         string
	importMappingFile    string
	importMappingVersion int
	importJSON           bool
	toggles              types.SafetyToggles

	commitImportedBy    string
	commitEffectiveFrom string
	commitYes           bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show what importing a vendor file would change",
	Long: `Normalize a vendor file with its mapping and diff it against the current catalog.
Nothing is written. The mapping comes from --mapping or, when omitted, from the stored
mapping of the vendor.`,
	Example: `  catalog-service preview acme.csv --vendor acme
  catalog-service preview acme.json --vendor acme --mapping acme-mapping.json --prices-only`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var commitCmd = &cobra.Command{
	Use:   "commit <file>",
	Short: "Import a vendor file into the catalog",
	Long: `Preview a vendor file and apply the filtered changes to the catalog. Without --yes
only the preview is printed.`,
	Example: `  catalog-service commit acme.csv --vendor acme --imported-by jane --yes
  catalog-service commit acme.xlsx --vendor acme --effective-from 2026-03-01 --mark-missing-discontinued --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(commitCmd)

	for _, cmd := range []*cobra.Command{previewCmd, commitCmd} {
		cmd.Flags().StringVar(&importVendor, "vendor", "", "Vendor code")
		cmd.Flags().StringVar(&importMappingFile, "mapping", "", "Mapping definition JSON file (default: stored mapping)")
		cmd.Flags().IntVar(&importMappingVersion, "mapping-version", 0, "Stored mapping version (default: latest)")
		cmd.Flags().BoolVar(&importJSON, "json", false, "Print JSON instead of tables")
		addFileFlags(cmd)
		addToggleFlags(cmd)
		_ = cmd.MarkFlagRequired("vendor")
	}

	commitCmd.Flags().StringVar(&commitImportedBy, "imported-by", os.Getenv("USER"), "Operator recorded in the audit log")
	commitCmd.Flags().StringVar(&commitEffectiveFrom, "effective-from", "", "Effective date (YYYY-MM-DD, default: today)")
	commitCmd.Flags().BoolVar(&commitYes, "yes", false, "Apply the changes")
}

func addToggleFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&toggles.PricesOnly, "prices-only", false, "Only apply price changes")
	cmd.Flags().BoolVar(&toggles.SpecsOnly, "specs-only", false, "Only apply spec changes")
	cmd.Flags().BoolVar(&toggles.DontChangeCollections, "dont-change-collections", false, "Keep existing collection assignments")
	cmd.Flags().BoolVar(&toggles.MarkMissingAsDiscontinued, "mark-missing-discontinued", false, "Discontinue products missing from the file")
	cmd.Flags().BoolVar(&toggles.TagNewAsIntroductions, "tag-new-introductions", false, "Tag added products as introductions")
}

func loadMappingFile(path string) (*mapping.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}
	var def mapping.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse mapping %s: %w", path, err)
	}
	return &def, nil
}

func buildPreviewRequest(path string) (pipeline.PreviewRequest, error) {
	raw, opts, err := readPayload(path)
	if err != nil {
		return pipeline.PreviewRequest{}, err
	}

	req := pipeline.PreviewRequest{
		VendorCode:     importVendor,
		Payload:        raw,
		PayloadOptions: opts,
		MappingVersion: importMappingVersion,
		Toggles:        toggles,
		RequestedBy:    commitImportedBy,
	}
	if importMappingFile != "" {
		def, err := loadMappingFile(importMappingFile)
		if err != nil {
			return req, err
		}
		req.Mapping = def
	}
	return req, nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	req, err := buildPreviewRequest(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	imp, err := a.Pipeline.Preview(ctx, req)
	if err != nil {
		return describeError(err)
	}

	if importJSON {
		return printJSON(cmd.OutOrStdout(), imp)
	}
	printPreview(cmd.OutOrStdout(), imp)
	return nil
}

func runCommit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	effective, err := commit.ParseEffectiveFrom(commitEffectiveFrom)
	if err != nil {
		return err
	}

	req, err := buildPreviewRequest(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	imp, err := a.Pipeline.Preview(ctx, req)
	if err != nil {
		return describeError(err)
	}

	out := cmd.OutOrStdout()
	if !importJSON {
		printPreview(out, imp)
	}

	if !commitYes {
		fmt.Fprintln(out, "\nNothing applied. Re-run with --yes to commit these changes.")
		return nil
	}
	if imp.Preview.IsEmpty() {
		fmt.Fprintln(out, "\nNo changes to apply.")
		return nil
	}

	result, err := a.Pipeline.Commit(ctx, imp.ID, pipeline.CommitRequest{
		ImportedBy:    commitImportedBy,
		EffectiveFrom: effective,
	})
	if err != nil {
		return err
	}

	if importJSON {
		return printJSON(out, result)
	}
	printCommitResult(out, result)
	if !result.Success {
		return fmt.Errorf("import %s finished with %d error(s)", result.ImportID, len(result.Errors))
	}
	return nil
}

func describeError(err error) error {
	var verr *mapping.ValidationError
	if errors.As(err, &verr) {
		msg := "mapping is invalid:"
		for _, m := range verr.Messages {
			msg += "\n  - " + m
		}
		return fmt.Errorf("%s", msg)
	}
	return err
}

func printPreview(out io.Writer, imp *staging.StagedImport) {
	p := imp.Preview
	s := p.Summary

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Vendor\t%s\n", p.VendorCode)
	fmt.Fprintf(w, "Incoming products\t%d\n", s.TotalIncoming)
	fmt.Fprintf(w, "New\t%d\n", s.NewProducts)
	fmt.Fprintf(w, "Updated\t%d\n", s.UpdatedProducts)
	fmt.Fprintf(w, "Price only\t%d\n", s.PriceOnlyChanges)
	fmt.Fprintf(w, "Unchanged\t%d\n", s.Unchanged)
	fmt.Fprintf(w, "Discontinued\t%d\n", s.Discontinued)
	fmt.Fprintf(w, "Skipped rows\t%d\n", len(imp.SkippedRows))
	w.Flush()

	entries := p.Entries()
	if len(entries) == 0 {
		return
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tCHANGE\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID(), e.Kind(), describeEntry(e))
	}
	w.Flush()

	if len(imp.SkippedRows) > 0 {
		fmt.Fprintln(out)
		for _, skip := range imp.SkippedRows {
			fmt.Fprintf(out, "skipped: %s\n", skip.Error())
		}
	}
}

func describeEntry(e diff.ProductDiff) string {
	switch d := e.(type) {
	case diff.AddDiff:
		return d.Incoming.Name
	case diff.UpdateDiff:
		detail := fmt.Sprintf("%d field(s)", len(d.Changes))
		if len(d.PriceChanges) > 0 {
			detail += fmt.Sprintf(", %d price(s)", len(d.PriceChanges))
		}
		return detail
	case diff.PriceChangeDiff:
		return describePrices(d.PriceChanges)
	case diff.DiscontinueDiff:
		return d.Existing.Name
	}
	return ""
}

func describePrices(changes []types.PriceChange) string {
	out := ""
	for i, pc := range changes {
		if i > 0 {
			out += "; "
		}
		if pc.OldAmount == nil {
			out += fmt.Sprintf("%s %s new %.2f", pc.Tier, pc.Currency, pc.NewAmount)
			continue
		}
		out += fmt.Sprintf("%s %s %.2f -> %.2f", pc.Tier, pc.Currency, *pc.OldAmount, pc.NewAmount)
		if pc.ChangePercent != nil {
			out += fmt.Sprintf(" (%+.2f%%)", *pc.ChangePercent)
		}
	}
	return out
}

func printCommitResult(out io.Writer, result *types.CommitResult) {
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Import\t%s\n", result.ImportID)
	fmt.Fprintf(w, "Success\t%t\n", result.Success)
	fmt.Fprintf(w, "Added\t%d\n", result.Summary.Added)
	fmt.Fprintf(w, "Updated\t%d\n", result.Summary.Updated)
	fmt.Fprintf(w, "Price changed\t%d\n", result.Summary.PriceChanged)
	fmt.Fprintf(w, "Discontinued\t%d\n", result.Summary.Discontinued)
	fmt.Fprintf(w, "Failed\t%d\n", result.Summary.Failed)
	w.Flush()

	for _, e := range result.Errors {
		fmt.Fprintf(out, "error: %s: %s\n", e.ProductID, e.Error)
	}
}
