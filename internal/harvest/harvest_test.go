package harvest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"civicroster/internal"
)

const councilPage = `<html><head><title>Council</title><style>.x{color:red}</style></head><body>
<h1>City Council</h1>
<table>
  <tr><td>Jordan Wu</td><td>Mayor</td></tr>
  <tr><td>Lee Fink</td><td>Vice Mayor</td></tr>
</table>
<p>Call <a href="tel:+15552012000">555-201-2000</a> or write <a href="mailto:JWU@testville.gov?subject=Hi">the mayor</a>.</p>
<p>Reach the clerk at clerk@testville.gov.</p>
<p>Jordan Wu has served the residents of Testville since 2022 and previously spent ten years on the planning
commission working on housing, parks, and transit projects across every district.</p>
<img src="/img/wu.jpg" alt=" Mayor  Jordan Wu "><img src="data:image/png;base64,AAAA">
<script>document.write("Fake Name, Mayor")</script>
</body></html>`

func TestParseHTML(t *testing.T) {
	page, err := Parse([]byte(councilPage), FormatHTML, "https://testville.gov/council/")
	require.NoError(t, err)

	lines := strings.Split(page.Text, "\n")
	require.Equal(t, "City Council", lines[0])
	require.Contains(t, lines, "Jordan Wu | Mayor")
	require.Contains(t, lines, "Lee Fink | Vice Mayor")
	require.NotContains(t, page.Text, "Fake Name")
	require.NotContains(t, page.Text, "color:red")

	require.Equal(t, []string{"jwu@testville.gov", "clerk@testville.gov"}, page.Emails)
	require.Equal(t, []string{"+15552012000", "555-201-2000"}, page.Phones)
	require.Equal(t, []internal.Image{{Src: "https://testville.gov/img/wu.jpg", Alt: "Mayor Jordan Wu"}}, page.Images)
	require.Len(t, page.Bios, 1)
	require.True(t, strings.HasPrefix(page.Bios[0], "Jordan Wu has served"))
	require.Equal(t, "https://testville.gov/council/", page.URL)
}

func TestParseText(t *testing.T) {
	page, err := Parse([]byte("Jordan Wu\r\nMayor\r\njwu@testville.gov | (555) 201-2000\r\n"), FormatText, "https://testville.gov/wu")
	require.NoError(t, err)
	require.Equal(t, "Jordan Wu\nMayor\njwu@testville.gov | (555) 201-2000\n", page.Text)
	require.Equal(t, []string{"jwu@testville.gov"}, page.Emails)
	require.Equal(t, []string{"(555) 201-2000"}, page.Phones)
}

func TestParseJSON(t *testing.T) {
	blob := []byte(`{"page_text": "Jordan Wu\nMayor", "emails": ["jwu@testville.gov"], "images": [{"src": "/wu.jpg", "alt": "Jordan Wu"}], "source_rank": 3}`)
	page, err := Parse(blob, FormatJSON, "https://testville.gov/wu")
	require.NoError(t, err)
	require.Equal(t, "https://testville.gov/wu", page.URL)
	require.Equal(t, internal.RankProfile, page.SourceRank)
	require.Equal(t, "Jordan Wu\nMayor", page.Text)
	require.Len(t, page.Images, 1)

	_, err = Parse([]byte(`{"page_text": 12}`), FormatJSON, "")
	require.Error(t, err)
}

func TestParseMHTML(t *testing.T) {
	raw := strings.Join([]string{
		"From: <Saved by Blink>",
		"Snapshot-Content-Location: https://testville.gov/council",
		"Subject: City Council",
		"MIME-Version: 1.0",
		`Content-Type: multipart/related; type="text/html"; boundary="----MultipartBoundary--abc"`,
		"",
		"------MultipartBoundary--abc",
		"Content-Type: text/html",
		"Content-ID: <frame-1@mhtml.blink>",
		"Content-Transfer-Encoding: quoted-printable",
		"Content-Location: https://testville.gov/council",
		"",
		`<html><body><p>Jordan Wu</p><p>Mayor</p><img src=3D"/img/wu.jpg" alt=3D"Jordan Wu=`,
		`"></body></html>`,
		"------MultipartBoundary--abc--",
		"",
	}, "\r\n")

	page, err := Parse([]byte(raw), FormatMHTML, "")
	require.NoError(t, err)
	require.Equal(t, "https://testville.gov/council", page.URL)
	require.Equal(t, "Jordan Wu\nMayor", page.Text)
	require.Equal(t, []internal.Image{{Src: "https://testville.gov/img/wu.jpg", Alt: "Jordan Wu"}}, page.Images)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pdf"), "")
	var snapErr *SnapshotError
	require.True(t, errors.As(err, &snapErr))
	require.Equal(t, FormatPDF, snapErr.Format)
	require.True(t, errors.Is(err, fs.ErrNotExist))

	bogus := filepath.Join(t.TempDir(), "page.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pdf"), 0o644))
	_, err = Load(bogus, "")
	require.True(t, errors.As(err, &snapErr))
	require.Equal(t, bogus, snapErr.Path)
}

func TestFormatOf(t *testing.T) {
	cases := map[string]string{
		"a/council.HTML": FormatHTML,
		"wu.htm":         FormatHTML,
		"saved.mht":      FormatMHTML,
		"roster.mhtml":   FormatMHTML,
		"agenda.pdf":     FormatPDF,
		"dump.json":      FormatJSON,
		"notes.txt":      FormatText,
		"no-extension":   FormatText,
	}
	for path, want := range cases {
		if got := FormatOf(path); got != want {
			t.Fatalf("%s: got %s want %s", path, got, want)
		}
	}
}

func TestReadSnapshotAndArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wu.txt")
	require.NoError(t, os.WriteFile(path, []byte("Mayor Jordan Wu"), 0o644))

	snap, err := ReadSnapshot(path, "https://testville.gov/wu")
	require.NoError(t, err)
	require.Len(t, snap.SHA256, 64)
	require.Equal(t, "Mayor Jordan Wu", snap.Page.Text)

	archive := NewArchive(filepath.Join(dir, "archive"))
	first, err := archive.Keep(snap)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "archive", snap.SHA256+".txt"), first)

	again, err := archive.Keep(snap)
	require.NoError(t, err)
	require.Equal(t, first, again)

	_, err = archive.Keep(Snapshot{Path: path})
	require.Error(t, err)
}
