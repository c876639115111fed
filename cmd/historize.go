package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/export"
	"github.com/geovintage/boundary-cli/internal/historize"
	"github.com/geovintage/boundary-cli/internal/model"
)

var historizeCmd = &cobra.Command{
	Use:   "historize",
	Short: "Match two vintages and partition entities",
	Long: `Loads the old and new vintages of a layer, scores geometric similarity
between candidate pairs, and partitions the entities into auto-matched,
needs-validation, removed, and added buckets.

By default the run is a dry run: the report and decisions are recorded but
no entity rows change. With --apply, auto-matched and removed old entities
get their validity period closed at the new vintage's start.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		layer, _ := cmd.Flags().GetString("layer")
		oldVintage, _ := cmd.Flags().GetString("old")
		newVintage, _ := cmd.Flags().GetString("new")
		apply, _ := cmd.Flags().GetBool("apply")
		exportPath, _ := cmd.Flags().GetString("export")
		includeRejected, _ := cmd.Flags().GetBool("include-rejected")

		layer = strings.ToLower(layer)

		manager, err := historize.NewManager(historize.Options{
			Thresholds:      cfg.Match.Thresholds(),
			Weights:         cfg.Match.Weights(),
			Buffer:          cfg.Match.Buffer,
			Workers:         cfg.Match.Workers,
			IncludeRejected: includeRejected,
			Layer:           layer,
			OldVintage:      oldVintage,
			NewVintage:      newVintage,
		})
		if err != nil {
			return err
		}

		st, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		oldEntities, err := st.ActiveEntities(ctx, layer, oldVintage)
		if err != nil {
			return err
		}
		newEntities, err := st.ActiveEntities(ctx, layer, newVintage)
		if err != nil {
			return err
		}
		if len(oldEntities) == 0 && len(newEntities) == 0 {
			return eris.Errorf("historize: no entities for layer %s in vintages %s/%s (run load first)",
				layer, oldVintage, newVintage)
		}

		report, err := manager.Run(ctx, oldEntities, newEntities)
		if err != nil {
			return err
		}

		if err := st.RecordRun(ctx, report); err != nil {
			return err
		}

		printReport(report)

		if apply {
			closeAt, err := historize.CloseDate(newVintage)
			if err != nil {
				return err
			}

			codes := make([]string, 0, len(report.AutoMatches)+len(report.Removed))
			for _, p := range report.AutoMatches {
				codes = append(codes, p.Old.Code)
			}
			for _, e := range report.Removed {
				codes = append(codes, e.Code)
			}

			n, err := st.CloseEntities(ctx, layer, oldVintage, codes, closeAt)
			if err != nil {
				return err
			}
			fmt.Printf("Closed %d old entities as of %s\n", n, closeAt.Format("2006-01-02"))
		}

		if exportPath != "" {
			if filepath.Ext(exportPath) == "" {
				exportPath = filepath.Join(cfg.Export.Dir, export.DefaultFilename(report))
			}
			if err := export.WriteWorkbook(report, exportPath); err != nil {
				return err
			}
			fmt.Printf("Review workbook written to %s\n", exportPath)
		}

		zap.L().Info("historization run complete",
			zap.String("run_id", report.RunID),
			zap.Bool("applied", apply),
		)
		return nil
	},
}

func printReport(report *model.HistorizationReport) {
	counts := report.Counts()
	fmt.Printf("Run %s: %s %s -> %s\n", report.RunID, report.Layer, report.OldVintage, report.NewVintage)
	fmt.Printf("  auto matches:     %d\n", counts.AutoMatches)
	fmt.Printf("  needs validation: %d\n", counts.NeedsValidation)
	fmt.Printf("  removed:          %d\n", counts.Removed)
	fmt.Printf("  added:            %d\n", counts.Added)
	if counts.Rejected > 0 {
		fmt.Printf("  rejected:         %d\n", counts.Rejected)
	}
	if len(report.Diagnostics) > 0 {
		fmt.Printf("  skipped (bad geometry): %d\n", len(report.Diagnostics))
		for _, d := range report.Diagnostics {
			fmt.Printf("    %s [%s]: %s\n", d.EntityID, d.Side, d.Reason)
		}
	}
}

func init() {
	historizeCmd.Flags().String("layer", "commune", "layer to historize")
	historizeCmd.Flags().String("old", "", "old vintage year")
	historizeCmd.Flags().String("new", "", "new vintage year")
	historizeCmd.Flags().Bool("apply", false, "close superseded old entities")
	historizeCmd.Flags().String("export", "", "write a review workbook (.xlsx); empty extension uses the default name")
	historizeCmd.Flags().Bool("include-rejected", false, "keep losing candidate pairs in the report")
	_ = historizeCmd.MarkFlagRequired("old")
	_ = historizeCmd.MarkFlagRequired("new")
	rootCmd.AddCommand(historizeCmd)
}
