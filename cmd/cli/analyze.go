package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/catalog-service/internal/payload"
)

var (
	analyzeVendor string
	analyzeJSON   bool
	fileFormat    string
	fileSheet     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a vendor file and draft a mapping",
	Long: `Detect the payload shape, profile the columns of the first rows and suggest which
columns hold the SKU, name, collection and price. With --json the draft mapping is printed
so it can be edited and saved with "mapping save".`,
	Example: `  catalog-service analyze acme.xlsx --vendor acme
  catalog-service analyze acme.json --vendor acme --json > acme-mapping.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeVendor, "vendor", "", "Vendor code for the draft mapping")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the draft mapping as JSON")
	addFileFlags(analyzeCmd)
	_ = analyzeCmd.MarkFlagRequired("vendor")
}

func addFileFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fileFormat, "format", "", "File format: json, csv, tsv or xlsx (default: from extension)")
	cmd.Flags().StringVar(&fileSheet, "sheet", "", "XLSX worksheet name (default: first sheet)")
}

func readPayload(path string) ([]byte, payload.Options, error) {
	opts := payload.Options{Format: payload.FormatFromFilename(path), Sheet: fileSheet}
	if fileFormat != "" {
		format, err := payload.ParseFormat(fileFormat)
		if err != nil {
			return nil, opts, err
		}
		opts.Format = format
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, opts, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	raw, opts, err := readPayload(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Pipeline.Analyze(ctx, analyzeVendor, raw, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		return printJSON(out, result.Draft)
	}

	analysis := result.Analysis
	fmt.Fprintf(out, "Shape: %s, rows: %d (sampled %d)\n\n", analysis.Shape, analysis.TotalRows, analysis.SampledRows)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tUNIQUE\tNULLS\tSAMPLES")
	for _, col := range analysis.Columns {
		samples := make([]string, 0, len(col.SampleValues))
		for _, v := range col.SampleValues {
			samples = append(samples, fmt.Sprint(v))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", col.Name, col.InferredType, col.UniqueCount, col.NullCount, strings.Join(samples, ", "))
	}
	w.Flush()

	s := analysis.Suggestions
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Suggested SKU:        %s\n", strings.Join(s.SKU, ", "))
	fmt.Fprintf(out, "Suggested name:       %s\n", strings.Join(s.Name, ", "))
	fmt.Fprintf(out, "Suggested collection: %s\n", strings.Join(s.Collection, ", "))
	fmt.Fprintf(out, "Suggested price:      %s (preferred: %s)\n", strings.Join(s.Price, ", "), s.PreferredPrice)
	return nil
}
