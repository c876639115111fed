package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/catalog"
	"github.com/geovintage/boundary-cli/internal/fetcher"
	"github.com/geovintage/boundary-cli/internal/ingest"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Download and load a boundary vintage into PostGIS",
	Long: `Downloads a product archive, parses the requested shapefile layer,
and bulk-loads the entities as a new vintage. Completed loads are recorded
in the local ledger and skipped on repeat runs unless --force is given.

Use --path to load from an already-downloaded shapefile instead of fetching.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		productName, _ := cmd.Flags().GetString("product")
		layerName, _ := cmd.Flags().GetString("layer")
		vintage, _ := cmd.Flags().GetString("vintage")
		territory, _ := cmd.Flags().GetString("territory")
		localPath, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		product, ok := catalog.ProductByName(productName)
		if !ok {
			return eris.Errorf("load: unknown product %q", productName)
		}
		layer, ok := product.LayerByName(layerName)
		if !ok {
			return eris.Errorf("load: product %s has no layer %q", product.Name, layerName)
		}
		if err := catalog.ValidateTerritory(territory); err != nil {
			return err
		}
		territory = strings.ToUpper(territory)

		log := zap.L().With(
			zap.String("command", "load"),
			zap.String("product", product.Name),
			zap.String("layer", layer.Name),
			zap.String("vintage", vintage),
			zap.String("territory", territory),
		)

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		if !force {
			loaded, err := ledger.IsLoaded(ctx, product.Name, layer.Name, territory, vintage)
			if err != nil {
				return err
			}
			if loaded {
				fmt.Printf("%s/%s %s (%s) already loaded, use --force to reload\n",
					product.Name, layer.Name, vintage, territory)
				return nil
			}
		}

		start := time.Now()

		shpPath := localPath
		if shpPath == "" {
			f := fetcher.New(fetcher.HTTPOptions{
				UserAgent:  cfg.Fetch.UserAgent,
				Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
				MaxRetries: cfg.Fetch.MaxRetries,
				RatePerSec: cfg.Fetch.RatePerSec,
			})

			destDir := filepath.Join(cfg.Catalog.TempDir, territory, vintage)
			extractDir, err := f.FetchArchive(ctx, product.URL(vintage, territory), destDir)
			if err != nil {
				return eris.Wrap(err, "load: fetch archive")
			}

			shpPath, err = fetcher.FindShapefile(extractDir, layer.Shapefile)
			if err != nil {
				return eris.Wrap(err, "load: locate shapefile")
			}
		}

		log.Info("parsing shapefile", zap.String("path", shpPath))

		entities, err := ingest.ParseVintage(shpPath, layer, vintage)
		if err != nil {
			return eris.Wrap(err, "load: parse shapefile")
		}
		if len(entities) == 0 {
			return eris.Errorf("load: no usable entities in %s", shpPath)
		}

		st, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := st.UpsertEntities(ctx, strings.ToLower(layer.Name), entities)
		if err != nil {
			return eris.Wrap(err, "load: upsert entities")
		}

		if err := ledger.RecordLoad(ctx, catalog.LoadRecord{
			Product:    product.Name,
			Layer:      layer.Name,
			Territory:  territory,
			Vintage:    vintage,
			RowCount:   int(n),
			DurationMs: int(time.Since(start).Milliseconds()),
		}); err != nil {
			log.Warn("failed to record load in ledger", zap.Error(err))
		}

		fmt.Printf("Loaded %d entities into %s vintage %s\n", n, strings.ToLower(layer.Name), vintage)
		return nil
	},
}

func init() {
	loadCmd.Flags().String("product", "ADMIN-EXPRESS-COG", "catalog product name")
	loadCmd.Flags().String("layer", "COMMUNE", "shapefile layer to load")
	loadCmd.Flags().String("vintage", "", "vintage year, e.g. 2024")
	loadCmd.Flags().String("territory", "FXX", "distribution territory code")
	loadCmd.Flags().String("path", "", "local .shp path (skips download)")
	loadCmd.Flags().Bool("force", false, "reload even if the ledger says it is already loaded")
	_ = loadCmd.MarkFlagRequired("vintage")
	rootCmd.AddCommand(loadCmd)
}
