package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"civicroster/internal/config"
	"civicroster/internal/overrides"
	"civicroster/internal/pipeline"
)

func init() {
	runCmd.Flags().StringSlice("city", nil, "city YAML file (repeatable); defaults to every *.yaml in CITIES_DIR")
	runCmd.Flags().String("out", "", "output directory for xlsx exports (defaults to OUTPUT_DIR)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvests every configured page of the given cities and stores the rosters.",
	Run: func(cmd *cobra.Command, args []string) {
		paths, _ := cmd.Flags().GetStringSlice("city")
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			cfg.OutputDir = out
		}
		if len(paths) == 0 {
			found, err := filepath.Glob(filepath.Join(cfg.CitiesDir, "*.yaml"))
			must(err)
			paths = found
		}
		if len(paths) == 0 {
			must(fmt.Errorf("no city configs given and none found in %s", cfg.CitiesDir))
		}

		cities := make([]config.CityConfig, 0, len(paths))
		for _, p := range paths {
			cities = append(cities, loadCity(p))
		}

		db := openDB()
		defer db.Close()
		svc := pipeline.NewProcessingService(db, cfg, slog.Default())
		if needsSheets(cities) {
			src, err := overrides.NewSheetSource(cmd.Context(), cfg)
			if err != nil {
				slog.Warn("google sheet overrides disabled", "error", err)
			} else {
				svc.WithSheets(src)
			}
		}

		outcomes := svc.RunCities(cmd.Context(), cities, cfg.MaxParallelCities)

		failed := 0
		t := newTable()
		t.AppendHeader(table.Row{"City", "Run", "Pages", "Failed", "Candidates", "Officials", "Export", "Error"})
		for _, o := range outcomes {
			r := o.Result
			errText := ""
			if o.Err != nil {
				failed++
				errText = o.Err.Error()
			}
			t.AppendRow(table.Row{r.City, r.RunID, r.Pages, r.Failed, r.Candidates, len(r.Officials), r.ExportPath, errText})
		}
		t.Render()
		if failed > 0 {
			must(fmt.Errorf("%d of %d cities failed", failed, len(outcomes)))
		}
	},
}

func needsSheets(cities []config.CityConfig) bool {
	for _, c := range cities {
		if c.OverrideSheet != nil {
			return true
		}
	}
	return false
}
