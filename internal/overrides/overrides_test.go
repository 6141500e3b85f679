package overrides

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/util"
)

func TestParseRowsWithHeader(t *testing.T) {
	rows := [][]string{
		{"Official", "Term End", "Ward", "Elected"},
		{"Jordan Wu", "2026", "Ward 2", "2022.0"},
		{"", "2030", "", ""},
		{"  Lee   Fink ", "", "", ""},
	}
	got, err := ParseRows(rows, "sheet:abc")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "Jordan Wu", got[0].Name)
	require.Equal(t, "Ward 2", util.DerefString(got[0].District))
	require.Equal(t, 2022, util.DerefInt(got[0].TermStart))
	require.Equal(t, 2026, util.DerefInt(got[0].TermEnd))
	require.Equal(t, "sheet:abc", got[0].Source)

	require.Equal(t, "Lee Fink", got[1].Name)
	require.Nil(t, got[1].District)
	require.Nil(t, got[1].TermStart)
	require.Nil(t, got[1].TermEnd)
}

func TestParseRowsPositional(t *testing.T) {
	got, err := ParseRows([][]string{{"Avery Stone", "District 3", "2020", "2024"}, {"Jordan Wu"}}, "xlsx:a.xlsx")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "District 3", util.DerefString(got[0].District))
	require.Equal(t, 2024, util.DerefInt(got[0].TermEnd))
	require.Nil(t, got[1].District)
}

func TestParseRowsRejectsBadYears(t *testing.T) {
	_, err := ParseRows([][]string{{"name", "term_start"}, {"Jordan Wu", "soon"}}, "sheet:abc")
	require.ErrorContains(t, err, "row 1 term_start")

	_, err = ParseRows([][]string{{"Jordan Wu", "", "", "3024"}}, "sheet:abc")
	require.ErrorContains(t, err, "implausible year")
}

func TestTableLayering(t *testing.T) {
	table := NewTable()
	table.Set(internal.OverrideEntry{Name: "Jordan Wu", District: util.StringPtr("District 1"), TermStart: util.IntPtr(2018), Source: "stored"})
	table.Set(internal.OverrideEntry{Name: "JORDAN  WU", TermStart: util.IntPtr(2022), Source: "yaml:testville"})
	table.Set(internal.OverrideEntry{Name: "  ", District: util.StringPtr("ignored")})

	require.Equal(t, 1, table.Len())
	e, ok := table.Lookup("nobody", "jordan wu")
	require.True(t, ok)
	require.Equal(t, "District 1", util.DerefString(e.District))
	require.Equal(t, 2022, util.DerefInt(e.TermStart))
	require.Equal(t, "yaml:testville", e.Source)

	_, ok = table.Lookup("Lee Fink")
	require.False(t, ok)

	table.Set(internal.OverrideEntry{Name: "Lee Fink", Source: "stored"})
	entries := table.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "Jordan Wu", entries[0].Name)
	require.Equal(t, "Lee Fink", entries[1].Name)

	var missing *Table
	_, ok = missing.Lookup("Jordan Wu")
	require.False(t, ok)
}

func TestFromConfig(t *testing.T) {
	got := FromConfig([]config.OverrideRow{
		{Name: "Jordan Wu", District: "District 1", TermEnd: 2026},
		{Name: " "},
	}, "yaml:testville")
	require.Len(t, got, 1)
	require.Equal(t, "District 1", util.DerefString(got[0].District))
	require.Nil(t, got[0].TermStart)
	require.Equal(t, 2026, util.DerefInt(got[0].TermEnd))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clerk.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"name", "district", "term_start", "term_end"},
		{"Jordan Wu", "District 1", 2022, 2026},
		{"Lee Fink", "", "", 2028},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "xlsx:clerk.xlsx", got[0].Source)
	require.Equal(t, 2022, util.DerefInt(got[0].TermStart))
	require.Equal(t, 2028, util.DerefInt(got[1].TermEnd))
	require.Nil(t, got[1].District)
}

func TestStringRows(t *testing.T) {
	got := StringRows([][]interface{}{{"Jordan Wu", float64(2022), nil}})
	require.Equal(t, [][]string{{"Jordan Wu", "2022", ""}}, got)
}
