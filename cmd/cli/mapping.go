package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kosarica/catalog-service/internal/mapping"
)

var (
	mappingUpdatedBy string
	mappingVersion   int
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Validate, save and show vendor mappings",
}

var mappingValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a mapping definition without saving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappingValidate,
}

var mappingSaveCmd = &cobra.Command{
	Use:     "save <file>",
	Short:   "Store a mapping definition as the vendor's next version",
	Example: `  catalog-service mapping save acme-mapping.json --updated-by jane`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMappingSave,
}

var mappingShowCmd = &cobra.Command{
	Use:     "show <vendor>",
	Short:   "Print a stored mapping (latest unless --version is set)",
	Example: `  catalog-service mapping show acme --version 2`,
	Args:    cobra.ExactArgs(1),
	RunE:    runMappingShow,
}

func init() {
	rootCmd.AddCommand(mappingCmd)
	mappingCmd.AddCommand(mappingValidateCmd)
	mappingCmd.AddCommand(mappingSaveCmd)
	mappingCmd.AddCommand(mappingShowCmd)

	mappingSaveCmd.Flags().StringVar(&mappingUpdatedBy, "updated-by", os.Getenv("USER"), "Author recorded on the mapping")
	mappingShowCmd.Flags().IntVar(&mappingVersion, "version", 0, "Mapping version (default: latest)")
}

func runMappingValidate(cmd *cobra.Command, args []string) error {
	def, err := loadMappingFile(args[0])
	if err != nil {
		return err
	}
	if err := mapping.Validate(def); err != nil {
		return describeError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: mapping for %s is valid\n", args[0], def.VendorCode)
	return nil
}

func runMappingSave(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	def, err := loadMappingFile(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.Mappings.Save(ctx, *def, mappingUpdatedBy)
	if err != nil {
		return describeError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved mapping for %s as version %d\n", saved.VendorCode, saved.Version)
	return nil
}

func runMappingShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var def *mapping.Definition
	if mappingVersion > 0 {
		def, err = a.Mappings.Version(ctx, args[0], mappingVersion)
	} else {
		def, err = a.Mappings.Latest(ctx, args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), def)
}
