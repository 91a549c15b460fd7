package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/pkg/errors"

	"github.com/spf13/cobra"
)

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize NAME...",
	Short: "Show the canonical account key of sheet names",
	Long: `Canonicalize prints the BANK-ACCT-PRODUCT key each sheet name folds to,
and whether the name would be admitted as a final workbook sheet.

Examples:
  reconciler canonicalize XNS-BOB-361-CA "bob 0361 ca xns" XNS_361_BOB_CA`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return canonicalize(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(canonicalizeCmd)
}

// canonicalize writes one line per name and fails with every name that
// has no canonical form.
func canonicalize(w io.Writer, names []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCANONICAL\tFINAL SHEET")

	var unresolved []string
	for _, name := range names {
		key := identity.Canonicalize(name)
		shown := key
		if key == "" {
			shown = "-"
			unresolved = append(unresolved, name)
		}
		admitted := "no"
		if identity.IsValidSheetName(name) {
			admitted = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, shown, admitted)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(unresolved) > 0 {
		return errors.UnresolvedIdentifierError("command line", unresolved)
	}
	return nil
}
