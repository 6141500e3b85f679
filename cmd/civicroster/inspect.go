package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"civicroster/internal"
	"civicroster/internal/pipeline"
	"civicroster/internal/util"
)

func init() {
	matchCmd.Flags().String("name", "", "person name")
	matchCmd.Flags().StringSlice("artifact", nil, "email address to test (repeatable)")
	matchCmd.Flags().String("domain", "", "only consider artifacts containing this domain")

	extractCmd.Flags().String("file", "", "saved page (html, mhtml, pdf, txt or json)")
	extractCmd.Flags().String("url", "", "address the page was saved from")
	extractCmd.Flags().String("city", "", "optional city YAML for its dialect")

	rootCmd.AddCommand(matchCmd, extractCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Shows which email address a name resolves to.",
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		values, _ := cmd.Flags().GetStringSlice("artifact")
		domain, _ := cmd.Flags().GetString("domain")
		if name == "" || len(values) == 0 {
			must(fmt.Errorf("--name and at least one --artifact are required"))
		}

		artifacts := make([]internal.Artifact, 0, len(values))
		for _, v := range values {
			artifacts = append(artifacts, internal.Artifact{Kind: internal.ArtifactEmail, Value: strings.TrimSpace(v)})
		}
		m := pipeline.NewMatcher(pipeline.NewDialect(cfg.CityDefaults()), slog.Default())
		res, ok := m.Match(name, artifacts, domain)
		if !ok {
			fmt.Println("no match")
			return
		}
		fmt.Printf("%s (pattern %s, key %s, exact %t)\n", res.Artifact.Value, res.Pattern, res.Key, res.Exact)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Runs one saved page through the engine and prints what it finds.",
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		pageURL, _ := cmd.Flags().GetString("url")
		cityPath, _ := cmd.Flags().GetString("city")
		if file == "" {
			must(fmt.Errorf("--file is required"))
		}

		city := cfg.CityDefaults()
		city.Name, city.Slug = "adhoc", "adhoc"
		if cityPath != "" {
			city = loadCity(cityPath)
		}

		res, err := pipeline.ExtractSnapshot(file, pageURL, city, slog.Default())
		must(err)
		fmt.Printf("page kind: %s, emails: %d, phones: %d, images: %d\n",
			res.Rank, len(res.Page.Emails), len(res.Page.Phones), len(res.Page.Images))

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Role", "District", "Term", "Source"})
		for _, c := range res.Candidates {
			t.AppendRow(table.Row{
				c.RawName, c.Role.Label(), util.DerefString(c.District),
				fmt.Sprintf("%v-%v", util.DerefInt(c.TermStart), util.DerefInt(c.TermEnd)), c.SourceRank,
			})
		}
		t.Render()
		renderOfficials(res.Officials)
	},
}
