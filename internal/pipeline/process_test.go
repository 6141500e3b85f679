package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/overrides"
	"civicroster/internal/storage"
	"civicroster/internal/util"
)

const councilHTML = `<html><body>
<h1>City Council</h1>
<ul>
  <li><img src="/img/jordan-wu.jpg" alt="Mayor Jordan Wu"><strong>Jordan Wu</strong><br>Mayor<br><a href="mailto:jwu@testville.gov">Email</a></li>
  <li><strong>Lee Fink</strong><br>Vice Mayor<br><a href="mailto:lfink@testville.gov">Email</a></li>
  <li><strong>Avery Stone</strong><br>Councilmember, District 3<br><a href="mailto:astone@testville.gov">Email</a></li>
</ul>
<script>var mayor = "Not A Person";</script>
</body></html>`

const mayorHTML = `<html><body>
<h1>Mayor Jordan Wu</h1>
<p>Mayor Jordan Wu was elected in 2022 and serves District 1.</p>
</body></html>`

const cityYAML = `name: Testville
email_domain: testville.gov
pages:
  - path: council.html
    url: https://testville.gov/council
  - path: mayor.html
    url: https://testville.gov/council/mayor-jordan-wu
    rank: profile
  - path: missing.html
    url: https://testville.gov/gone
overrides:
  - name: Avery Stone
    term_start: 2020
    term_end: 2024
`

func TestProcessingServiceRunCity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "council.html"), []byte(councilHTML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mayor.html"), []byte(mayorHTML), 0o644))
	cityPath := filepath.Join(dir, "testville.yaml")
	require.NoError(t, os.WriteFile(cityPath, []byte(cityYAML), 0o644))

	cfg := config.Config{
		DBPath:            filepath.Join(dir, "data", "test.db"),
		OutputDir:         filepath.Join(dir, "out"),
		ArchiveDir:        filepath.Join(dir, "archive"),
		InferBareYear:     true,
		DefaultTermLength: 4,
	}
	city, err := config.LoadCity(cityPath, cfg.CityDefaults())
	require.NoError(t, err)
	require.Equal(t, "testville", city.Slug)

	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	// stored rows sit under the city YAML
	require.NoError(t, db.UpsertOverrides(city.Slug, []internal.OverrideEntry{{
		Name:      "Avery Stone",
		District:  util.StringPtr("District 9"),
		TermStart: util.IntPtr(2016),
		Source:    "xlsx:clerk.xlsx",
	}}))

	svc := NewProcessingService(db, cfg, nil)
	res, err := svc.RunCity(context.Background(), city)
	require.NoError(t, err)
	require.Equal(t, 2, res.Pages)
	require.Equal(t, 1, res.Failed)
	require.Len(t, res.Officials, 3)
	require.FileExists(t, res.ExportPath)

	got := officialsByKey(res.Officials)

	wu := got["jordan wu"]
	require.Equal(t, internal.RoleMayor, wu.Role)
	require.Equal(t, "District 1", util.DerefString(wu.District))
	require.Equal(t, 2022, util.DerefInt(wu.TermStart))
	require.Equal(t, 2026, util.DerefInt(wu.TermEnd))
	require.Equal(t, "jwu@testville.gov", util.DerefString(wu.Email))
	require.Equal(t, "https://testville.gov/img/jordan-wu.jpg", util.DerefString(wu.PhotoURL))

	avery := got["avery stone"]
	require.True(t, avery.Overridden)
	require.Equal(t, "District 9", util.DerefString(avery.District))
	require.Equal(t, 2020, util.DerefInt(avery.TermStart))
	require.Equal(t, 2024, util.DerefInt(avery.TermEnd))
	require.Contains(t, avery.Sources, "override:yaml:testville")

	run, stored, err := svc.LatestOfficials(city.Slug)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, res.RunID, run.ID)
	require.Equal(t, internal.RunDone, run.Status)
	require.Equal(t, 2, run.Pages)
	require.Equal(t, res.Officials, stored)

	pages, err := svc.RunPages(res.RunID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	require.Equal(t, internal.RankRoster, pages[0].Rank)
	require.Equal(t, 3, pages[0].Candidates)
	require.Len(t, pages[0].SHA256, 64)
	require.FileExists(t, pages[0].Archived)
	require.Equal(t, internal.RankProfile, pages[1].Rank)
	require.NotEmpty(t, pages[2].Error)
	require.Empty(t, pages[2].SHA256)
}

func TestProcessingServiceLatestOfficialsWithoutRuns(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	run, officials, err := NewProcessingService(db, config.Config{}, nil).LatestOfficials("nowhere")
	require.NoError(t, err)
	require.Nil(t, run)
	require.Empty(t, officials)
}

func TestExtractSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "council.html")
	require.NoError(t, os.WriteFile(path, []byte(councilHTML), 0o644))

	res, err := ExtractSnapshot(path, "https://testville.gov/council", testCity(), nil)
	require.NoError(t, err)
	require.Equal(t, internal.RankRoster, res.Rank)
	require.Len(t, res.Candidates, 3)
	require.Len(t, res.Officials, 3)
}

func TestProcessingServiceOverridesWithoutSheet(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.UpsertOverrides("testville", []internal.OverrideEntry{{
		Name:     "Lee Fink",
		District: util.StringPtr("District 4"),
		Source:   "xlsx:clerk.xlsx",
	}}))

	city := testCity()
	city.Overrides = []config.OverrideRow{{Name: "Jordan Wu", TermEnd: 2030}}
	// no spreadsheet id: the fetch fails before any request is made
	city.OverrideSheet = &config.OverrideSheet{}

	svc := NewProcessingService(db, config.Config{}, nil).WithSheets(&overrides.SheetSource{})
	table, err := svc.Overrides(context.Background(), city)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	e, ok := table.Lookup("Lee Fink")
	require.True(t, ok)
	require.Equal(t, "District 4", util.DerefString(e.District))
	e, ok = table.Lookup("Jordan Wu")
	require.True(t, ok)
	require.Equal(t, 2030, util.DerefInt(e.TermEnd))
}

func TestProcessingServiceRunCitiesKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "council.html"), []byte(councilHTML), 0o644))
	outDir := filepath.Join(dir, "out")
	// a directory where the export should go makes that city's export fail
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "broken.xlsx"), 0o755))

	cfg := config.Config{DBPath: filepath.Join(dir, "test.db"), OutputDir: outDir}
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	city := func(slug string) config.CityConfig {
		c := testCity()
		c.Slug = slug
		c.BaseDir = dir
		c.Pages = []config.PageSource{{Path: "council.html", URL: "https://testville.gov/council"}}
		return c
	}

	svc := NewProcessingService(db, cfg, nil)
	outcomes := svc.RunCities(context.Background(), []config.CityConfig{city("broken"), city("testville")}, 2)
	require.Len(t, outcomes, 2)

	require.Error(t, outcomes[0].Err)
	require.Equal(t, "broken", outcomes[0].Result.City)

	require.NoError(t, outcomes[1].Err)
	require.Len(t, outcomes[1].Result.Officials, 3)
	require.FileExists(t, outcomes[1].Result.ExportPath)

	run, _, err := svc.LatestOfficials("testville")
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, internal.RunDone, run.Status)

	run, _, err = svc.LatestOfficials("broken")
	require.NoError(t, err)
	require.Nil(t, run)
}
