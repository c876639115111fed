package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geovintage/boundary-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export the decisions of a recorded run as a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runID := args[0]
		path, _ := cmd.Flags().GetString("output")

		st, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		run, err := st.GetRun(ctx, runID)
		if err != nil {
			return err
		}

		decisions, err := st.Decisions(ctx, runID, "")
		if err != nil {
			return err
		}
		if len(decisions) == 0 {
			return eris.Errorf("export: run %s has no recorded decisions", runID)
		}

		if path == "" {
			path = fmt.Sprintf("decisions_%s_%s_%s.xlsx", run.Layer, run.OldVintage, run.NewVintage)
		}
		if err := export.WriteDecisions(runID, decisions, path); err != nil {
			return err
		}

		fmt.Printf("Exported %d decisions to %s\n", len(decisions), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("output", "", "destination .xlsx path")
	rootCmd.AddCommand(exportCmd)
}
