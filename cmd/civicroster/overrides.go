package main

import (
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"civicroster/internal/overrides"
	"civicroster/internal/pipeline"
	"civicroster/internal/util"
)

func init() {
	importCmd.Flags().String("city", "", "city slug")
	importCmd.Flags().String("xlsx", "", "workbook with name, district, term_start, term_end columns")
	syncCmd.Flags().String("city", "", "city YAML file with an override_sheet")
	listCmd.Flags().String("city", "", "city YAML file")
	overridesCmd.AddCommand(importCmd, syncCmd, listCmd)
	rootCmd.AddCommand(overridesCmd)
}

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Manages verified district and term data.",
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Stores override rows from an xlsx workbook.",
	Run: func(cmd *cobra.Command, args []string) {
		slug, _ := cmd.Flags().GetString("city")
		path, _ := cmd.Flags().GetString("xlsx")
		if slug == "" || path == "" {
			must(fmt.Errorf("--city and --xlsx are required"))
		}

		db := openDB()
		defer db.Close()
		n, err := pipeline.NewProcessingService(db, cfg, slog.Default()).ImportOverrides(slug, path)
		must(err)
		fmt.Printf("imported %d overrides for %s\n", n, slug)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copies a city's Google Sheet of overrides into the local store.",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("city")
		if path == "" {
			must(fmt.Errorf("--city is required"))
		}
		city := loadCity(path)

		src, err := overrides.NewSheetSource(cmd.Context(), cfg)
		must(err)

		db := openDB()
		defer db.Close()
		svc := pipeline.NewProcessingService(db, cfg, slog.Default()).WithSheets(src)
		n, err := svc.SyncSheetOverrides(cmd.Context(), city)
		must(err)
		fmt.Printf("synced %d overrides for %s\n", n, city.Slug)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the override table a run of the city would apply.",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("city")
		if path == "" {
			must(fmt.Errorf("--city is required"))
		}
		city := loadCity(path)

		db := openDB()
		defer db.Close()
		svc := pipeline.NewProcessingService(db, cfg, slog.Default())
		if city.OverrideSheet != nil {
			if src, err := overrides.NewSheetSource(cmd.Context(), cfg); err == nil {
				svc.WithSheets(src)
			}
		}
		tbl, err := svc.Overrides(cmd.Context(), city)
		must(err)

		t := newTable()
		t.AppendHeader(table.Row{"Name", "District", "Term Start", "Term End", "Source"})
		for _, e := range tbl.Entries() {
			t.AppendRow(table.Row{
				e.Name, util.DerefString(e.District), util.DerefInt(e.TermStart),
				util.DerefInt(e.TermEnd), e.Source,
			})
		}
		t.Render()
	},
}
