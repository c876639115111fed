package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which vintages have been loaded",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		loads, err := ledger.Loads(ctx)
		if err != nil {
			return err
		}
		if len(loads) == 0 {
			fmt.Println("No vintages loaded yet. Run `boundary-cli load --vintage <year>` first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRODUCT\tLAYER\tTERRITORY\tVINTAGE\tROWS\tLOADED AT\tDURATION")
		for _, rec := range loads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%dms\n",
				rec.Product, rec.Layer, rec.Territory, rec.Vintage,
				rec.RowCount, rec.LoadedAt.Format("2006-01-02 15:04"), rec.DurationMs)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
