package main

import (
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"civicroster/internal"
	"civicroster/internal/pipeline"
	"civicroster/internal/util"
)

func init() {
	showCmd.Flags().String("city", "", "city slug")
	showCmd.Flags().Bool("pages", false, "also list the snapshots the run read")
	exportCmd.Flags().String("city", "", "city slug")
	exportCmd.Flags().String("out", "", "output xlsx path")
	rootCmd.AddCommand(showCmd, exportCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the officials of a city's latest run.",
	Run: func(cmd *cobra.Command, args []string) {
		slug, _ := cmd.Flags().GetString("city")
		withPages, _ := cmd.Flags().GetBool("pages")
		run, officials := latest(slug)

		fmt.Printf("run %s finished %s (%d pages)\n", run.ID, run.FinishedAt, run.Pages)
		renderOfficials(officials)
		if withPages {
			renderPages(run.ID)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Writes the officials of a city's latest run to an xlsx file.",
	Run: func(cmd *cobra.Command, args []string) {
		slug, _ := cmd.Flags().GetString("city")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			must(fmt.Errorf("--out is required"))
		}
		_, officials := latest(slug)
		must(pipeline.ExportOfficialsToXLSX(officials, out))
		fmt.Printf("exported %d officials to %s\n", len(officials), out)
	},
}

func latest(slug string) (*internal.RunRow, []internal.Official) {
	if slug == "" {
		must(fmt.Errorf("--city is required"))
	}
	db := openDB()
	defer db.Close()

	svc := pipeline.NewProcessingService(db, cfg, slog.Default())
	run, officials, err := svc.LatestOfficials(slug)
	must(err)
	if run == nil {
		must(fmt.Errorf("no finished run for city %s", slug))
	}
	return run, officials
}

func renderPages(runID string) {
	db := openDB()
	defer db.Close()
	pages, err := pipeline.NewProcessingService(db, cfg, slog.Default()).RunPages(runID)
	must(err)

	t := newTable()
	t.AppendHeader(table.Row{"Path", "Kind", "Candidates", "SHA-256", "Error"})
	for _, p := range pages {
		hash := p.SHA256
		if len(hash) > 12 {
			hash = hash[:12]
		}
		t.AppendRow(table.Row{p.Path, p.Rank, p.Candidates, hash, p.Error})
	}
	t.Render()
}

func renderOfficials(officials []internal.Official) {
	t := newTable()
	t.AppendHeader(table.Row{"Name", "Role", "District", "Email", "Phone", "Term", "Override"})
	for _, o := range officials {
		term := ""
		if o.TermStart != nil || o.TermEnd != nil {
			term = fmt.Sprintf("%v-%v", util.DerefInt(o.TermStart), util.DerefInt(o.TermEnd))
		}
		override := ""
		if o.Overridden {
			override = "yes"
		}
		t.AppendRow(table.Row{
			o.Name, o.Role.Label(), util.DerefString(o.District), util.DerefString(o.Email),
			util.DerefString(o.Phone), term, override,
		})
	}
	t.Render()
}
