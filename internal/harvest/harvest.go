package harvest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"civicroster/internal"
)

const (
	FormatHTML  = "html"
	FormatMHTML = "mhtml"
	FormatPDF   = "pdf"
	FormatText  = "txt"
	FormatJSON  = "json"
)

var (
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\b\d{3}\)?[\s.\-]?\d{3}[\s.\-]\d{4}\b`)
)

// SnapshotError reports a saved page that could not be read.
type SnapshotError struct {
	Path   string
	Format string
	Err    error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// FormatOf picks the adapter for a snapshot path by extension.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	case ".mhtml", ".mht":
		return FormatMHTML
	case ".pdf":
		return FormatPDF
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Snapshot is a saved page as read from disk, before and after parsing.
type Snapshot struct {
	Path   string
	Format string
	SHA256 string
	Raw    []byte
	Page   internal.PageInput
}

// Load reads a saved page from disk into the engine's input shape. pageURL is
// the address the snapshot was taken from; it resolves relative image links
// and is used when the snapshot does not record its own location.
func Load(path, pageURL string) (internal.PageInput, error) {
	snap, err := ReadSnapshot(path, pageURL)
	if err != nil {
		return internal.PageInput{}, err
	}
	return snap.Page, nil
}

// ReadSnapshot is Load that also keeps the raw bytes and their hash. A parse
// failure still returns the hash so callers can record what they skipped.
func ReadSnapshot(path, pageURL string) (Snapshot, error) {
	snap := Snapshot{Path: path, Format: FormatOf(path)}
	blob, err := os.ReadFile(path)
	if err != nil {
		return snap, &SnapshotError{Path: path, Format: snap.Format, Err: err}
	}
	sum := sha256.Sum256(blob)
	snap.SHA256 = hex.EncodeToString(sum[:])
	snap.Raw = blob

	page, err := Parse(blob, snap.Format, pageURL)
	if err != nil {
		return snap, &SnapshotError{Path: path, Format: snap.Format, Err: err}
	}
	snap.Page = page
	return snap, nil
}

func Parse(blob []byte, format, pageURL string) (internal.PageInput, error) {
	switch format {
	case FormatHTML:
		return parseHTML(string(blob), pageURL)
	case FormatMHTML:
		return parseMHTML(blob, pageURL)
	case FormatPDF:
		return parsePDF(blob, pageURL)
	case FormatJSON:
		var page internal.PageInput
		if err := json.Unmarshal(blob, &page); err != nil {
			return internal.PageInput{}, err
		}
		if page.URL == "" {
			page.URL = pageURL
		}
		return page, nil
	case FormatText:
		return fromText(string(blob), pageURL), nil
	default:
		return internal.PageInput{}, fmt.Errorf("unsupported snapshot format: %s", format)
	}
}

func fromText(text, pageURL string) internal.PageInput {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return internal.PageInput{
		URL:    pageURL,
		Text:   text,
		Emails: ScanEmails(text),
		Phones: ScanPhones(text),
	}
}

func ScanEmails(text string) []string {
	var out []string
	for _, m := range emailPattern.FindAllString(text, -1) {
		out = appendUnique(out, strings.ToLower(strings.TrimRight(m, ".")))
	}
	return out
}

func ScanPhones(text string) []string {
	var out []string
	for _, m := range phonePattern.FindAllString(text, -1) {
		out = appendUnique(out, strings.TrimSpace(m))
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}
