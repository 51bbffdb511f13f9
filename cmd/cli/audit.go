package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	auditVendor string
	auditLimit  int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the import audit log",
}

var auditListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List committed imports, newest first",
	Example: `  catalog-service audit list --vendor acme --limit 10`,
	Args:    cobra.NoArgs,
	RunE:    runAuditList,
}

var auditShowCmd = &cobra.Command{
	Use:     "show <importId>",
	Short:   "Show the audit record of one import",
	Example: `  catalog-service audit show imp_0TbXk2a9b8c7d6e5f4g3h2i1`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAuditShow,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)

	auditListCmd.Flags().StringVar(&auditVendor, "vendor", "", "Only show imports for this vendor")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum number of records")
}

func runAuditList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Audit.List(ctx, auditVendor, auditLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMPORT\tVENDOR\tTIMESTAMP\tBY\tSUCCESS\tADDED\tUPDATED\tPRICES\tDISCONTINUED\tFAILED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.VendorCode, r.Timestamp.Format("2006-01-02 15:04:05"), r.ImportedBy, r.Success,
			r.Summary.Added, r.Summary.Updated, r.Summary.PriceChanged, r.Summary.Discontinued, r.Summary.Failed)
	}
	return w.Flush()
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Audit.Get(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}
