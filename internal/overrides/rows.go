package overrides

import (
	"fmt"
	"strconv"
	"strings"

	"civicroster/internal"
	"civicroster/internal/util"
)

var headerAliases = map[string]string{
	"name":       "name",
	"official":   "name",
	"district":   "district",
	"ward":       "district",
	"seat":       "district",
	"term_start": "term_start",
	"term start": "term_start",
	"start":      "term_start",
	"elected":    "term_start",
	"term_end":   "term_end",
	"term end":   "term_end",
	"end":        "term_end",
	"expires":    "term_end",
}

// ParseRows reads spreadsheet-shaped override rows. A first row made of known
// column names is used as the header; otherwise columns are positional:
// name, district, term_start, term_end.
func ParseRows(rows [][]string, source string) ([]internal.OverrideEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{"name": 0, "district": 1, "term_start": 2, "term_end": 3}
	if header, ok := detectHeader(rows[0]); ok {
		cols = header
		rows = rows[1:]
	}

	out := make([]internal.OverrideEntry, 0, len(rows))
	for i, row := range rows {
		name := util.NormalizeSpaces(cell(row, cols, "name"))
		if name == "" {
			continue
		}
		e := internal.OverrideEntry{Name: name, Source: source}
		if d := util.NormalizeSpaces(cell(row, cols, "district")); d != "" {
			e.District = util.StringPtr(d)
		}
		var err error
		if e.TermStart, err = parseYear(cell(row, cols, "term_start")); err != nil {
			return nil, fmt.Errorf("%s row %d term_start: %w", source, i+1, err)
		}
		if e.TermEnd, err = parseYear(cell(row, cols, "term_end")); err != nil {
			return nil, fmt.Errorf("%s row %d term_end: %w", source, i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func detectHeader(row []string) (map[string]int, bool) {
	cols := map[string]int{}
	for i, v := range row {
		if name, ok := headerAliases[strings.ToLower(strings.TrimSpace(v))]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	_, hasName := cols["name"]
	return cols, hasName
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseYear(v string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	// spreadsheets hand numbers back as "2024.0" at times
	v = strings.TrimSuffix(v, ".0")
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	if n < 1900 || n > 2100 {
		return nil, fmt.Errorf("implausible year %d", n)
	}
	return &n, nil
}
