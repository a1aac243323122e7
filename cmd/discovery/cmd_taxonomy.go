package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"discoverydraft-backend/taxonomy"

	"github.com/spf13/cobra"
)

// taxonomyCmd lists the registry's categories, codes and context flags
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "List the issue codes and flags the registry recognizes",
	Args:  cobra.NoArgs,
	RunE:  runTaxonomy,
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	reg := taxonomy.Default()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "taxonomy %s\n\n", reg.Version())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tFLAG\tCODES")
	for _, cat := range reg.Categories() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cat.Key, taxonomy.AggregateFlag(cat.Key), strings.Join(cat.Codes, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\ncontext flags: %s\n", strings.Join(reg.ContextFlags(), ", "))
	return nil
}
