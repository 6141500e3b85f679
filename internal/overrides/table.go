package overrides

import (
	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/util"
)

// Table is the verified ground truth of one city, keyed by normalized name.
// Entries loaded later take precedence field by field.
type Table struct {
	entries map[string]internal.OverrideEntry
	order   []string
}

func NewTable() *Table {
	return &Table{entries: map[string]internal.OverrideEntry{}}
}

// Set adds an entry or layers its non-empty fields over an existing one.
func (t *Table) Set(e internal.OverrideEntry) {
	key := util.NormalizeName(e.Name)
	if key == "" {
		return
	}
	cur, ok := t.entries[key]
	if !ok {
		t.order = append(t.order, key)
		t.entries[key] = e
		return
	}
	if e.District != nil {
		cur.District = e.District
	}
	if e.TermStart != nil {
		cur.TermStart = e.TermStart
	}
	if e.TermEnd != nil {
		cur.TermEnd = e.TermEnd
	}
	if e.Source != "" {
		cur.Source = e.Source
	}
	t.entries[key] = cur
}

func (t *Table) SetAll(entries []internal.OverrideEntry) {
	for _, e := range entries {
		t.Set(e)
	}
}

// Lookup returns the entry for the first of names present in the table.
func (t *Table) Lookup(names ...string) (internal.OverrideEntry, bool) {
	if t == nil {
		return internal.OverrideEntry{}, false
	}
	for _, n := range names {
		if e, ok := t.entries[util.NormalizeName(n)]; ok {
			return e, true
		}
	}
	return internal.OverrideEntry{}, false
}

func (t *Table) Len() int {
	return len(t.order)
}

// Entries lists the table in insertion order.
func (t *Table) Entries() []internal.OverrideEntry {
	out := make([]internal.OverrideEntry, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.entries[key])
	}
	return out
}

// FromConfig converts inline YAML overrides. Zero years and empty districts
// mean "not set".
func FromConfig(rows []config.OverrideRow, source string) []internal.OverrideEntry {
	out := make([]internal.OverrideEntry, 0, len(rows))
	for _, r := range rows {
		e := internal.OverrideEntry{Name: util.NormalizeSpaces(r.Name), Source: source}
		if r.District != "" {
			e.District = util.StringPtr(r.District)
		}
		if r.TermStart > 0 {
			e.TermStart = util.IntPtr(r.TermStart)
		}
		if r.TermEnd > 0 {
			e.TermEnd = util.IntPtr(r.TermEnd)
		}
		if e.Name != "" {
			out = append(out, e)
		}
	}
	return out
}
