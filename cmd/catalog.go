package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/geovintage/boundary-cli/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the boundary products the loader knows about",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT\tLAYER\tKEY FIELD\tATTRIBUTES")
		for _, p := range catalog.Products {
			for _, l := range p.Layers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, l.Name, l.KeyField, strings.Join(l.Attrs, ","))
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nTerritories: %s\n", strings.Join(catalog.Territories, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
