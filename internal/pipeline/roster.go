package pipeline

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"civicroster/internal"
	"civicroster/internal/overrides"
	"civicroster/internal/util"
)

var ErrRosterFinalized = errors.New("roster already finalized")

// field holds one merged attribute with the provenance that set it.
type field[T any] struct {
	Value      T
	Rank       internal.SourceRank
	Confidence internal.Confidence
	Set        bool
}

// offer replaces the value when the field is empty or the new value is more
// trustworthy. Equal confidence and rank keep the first value seen.
func (f *field[T]) offer(v T, rank internal.SourceRank, conf internal.Confidence) bool {
	if f.Set && (conf < f.Confidence || (conf == f.Confidence && rank <= f.Rank)) {
		return false
	}
	f.Value, f.Rank, f.Confidence, f.Set = v, rank, conf, true
	return true
}

func offerPtr[T any](f *field[T], v *T, rank internal.SourceRank) {
	if v != nil {
		f.offer(*v, rank, internal.ConfidenceNone)
	}
}

func (f *field[T]) ptr() *T {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

type rosterEntry struct {
	key     string
	names   map[string]*field[string]
	aliases []string

	role      field[internal.Role]
	district  field[string]
	termStart field[int]
	termEnd   field[int]
	email     field[string]
	phone     field[string]
	photo     field[string]
	bio       field[string]
	sources   []string
}

// Roster folds candidates from every page of one city into canonical
// officials. It is not safe for concurrent use; build one per city run.
type Roster struct {
	city      string
	dialect   *Dialect
	overrides *overrides.Table
	logger    *slog.Logger

	keys      []string
	added     []rosterAdd
	finalized bool
}

type rosterAdd struct {
	key       string
	candidate internal.CandidateRecord
	found     []MatchResult
}

func NewRoster(city string, dialect *Dialect, table *overrides.Table, logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	if table == nil {
		table = overrides.NewTable()
	}
	return &Roster{city: city, dialect: dialect, overrides: table, logger: logger}
}

// Add records one candidate and the artifacts matched to it. Identity is
// resolved at Finalize, once every name of the city is known.
func (r *Roster) Add(c internal.CandidateRecord, found []MatchResult) error {
	if r.finalized {
		return ErrRosterFinalized
	}
	key := r.canonical(c)
	if key == "" {
		r.logger.Debug("dropping candidate without name", "raw", c.RawName, "source", c.SourceURL)
		return nil
	}
	if !contains(r.keys, key) {
		r.keys = append(r.keys, key)
	}
	r.added = append(r.added, rosterAdd{key: key, candidate: c, found: found})
	return nil
}

// Len reports the number of distinct officials seen so far.
func (r *Roster) Len() int {
	n := 0
	for k, root := range r.cluster() {
		if k == root {
			n++
		}
	}
	return n
}

func (r *Roster) canonical(c internal.CandidateRecord) string {
	name := c.NormalizedName
	if name == "" {
		name = util.NormalizeName(c.RawName)
	}
	if r.dialect != nil {
		name = r.dialect.StripRoleWords(name)
	}
	return name
}

// cluster maps every key to the key of the official it belongs to. A name
// that is a contiguous run of at least two tokens of longer names joins the
// longest of them when exactly one such longest name exists; a name inside
// several unrelated longest names is ambiguous and stays on its own.
func (r *Roster) cluster() map[string]string {
	tokens := make(map[string][]string, len(r.keys))
	for _, k := range r.keys {
		tokens[k] = strings.Fields(k)
	}
	inside := func(short, long string) bool {
		return len(tokens[short]) < len(tokens[long]) && tokenContained(tokens[short], tokens[long])
	}

	var maximal []string
	for _, k := range r.keys {
		top := true
		for _, o := range r.keys {
			if inside(k, o) {
				top = false
				break
			}
		}
		if top {
			maximal = append(maximal, k)
		}
	}

	root := make(map[string]string, len(r.keys))
	for _, k := range r.keys {
		root[k] = k
		var hits []string
		for _, m := range maximal {
			if inside(k, m) {
				hits = append(hits, m)
			}
		}
		switch {
		case len(hits) == 1:
			root[k] = hits[0]
		case len(hits) > 1:
			r.logger.Debug("ambiguous name kept separate", "name", k, "matches", len(hits))
		}
	}
	return root
}

func tokenContained(a, b []string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) < 2 {
		return false
	}
	for i := 0; i+len(short) <= len(long); i++ {
		match := true
		for j := range short {
			if long[i+j] != short[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (r *Roster) merge(e *rosterEntry, key string, c internal.CandidateRecord, found []MatchResult) {
	if !contains(e.aliases, key) {
		e.aliases = append(e.aliases, key)
	}
	if longerKey(key, e.key) {
		e.key = key
	}
	nf := e.names[key]
	if nf == nil {
		nf = &field[string]{}
		e.names[key] = nf
	}
	nf.offer(util.NormalizeSpaces(c.RawName), c.SourceRank, internal.ConfidenceNone)

	if c.Role != "" && c.Role != internal.RoleUnknown {
		e.role.offer(c.Role, c.SourceRank, internal.ConfidenceNone)
	}
	offerPtr(&e.district, c.District, c.SourceRank)
	offerPtr(&e.termStart, c.TermStart, c.SourceRank)
	offerPtr(&e.termEnd, c.TermEnd, c.SourceRank)

	for _, m := range found {
		value := strings.TrimSpace(m.Artifact.Value)
		if value == "" {
			continue
		}
		switch m.Artifact.Kind {
		case internal.ArtifactEmail:
			e.email.offer(strings.TrimPrefix(value, "mailto:"), c.SourceRank, m.Confidence)
		case internal.ArtifactPhone:
			e.phone.offer(value, c.SourceRank, internal.ConfidenceNone)
		case internal.ArtifactPhoto:
			e.photo.offer(value, c.SourceRank, internal.ConfidenceNone)
		case internal.ArtifactBio:
			e.bio.offer(value, c.SourceRank, internal.ConfidenceNone)
		}
	}

	if c.SourceURL != "" && !contains(e.sources, c.SourceURL) {
		e.sources = append(e.sources, c.SourceURL)
	}
}

// longerKey reports whether candidate should replace current as the canonical
// key: longer wins, ties go to the lexicographically smaller name.
func longerKey(candidate, current string) bool {
	lc, lk := utf8.RuneCountInString(candidate), utf8.RuneCountInString(current)
	if lc != lk {
		return lc > lk
	}
	return candidate < current
}

// Finalize applies the override table and freezes the roster. Officials come
// back in order of first appearance.
func (r *Roster) Finalize() []internal.Official {
	r.finalized = true

	table := r.overrideTable()
	root := r.cluster()
	byRoot := map[string]*rosterEntry{}
	var entries []*rosterEntry
	for _, k := range r.keys {
		if byRoot[root[k]] == nil {
			e := &rosterEntry{key: k, names: map[string]*field[string]{}}
			byRoot[root[k]] = e
			entries = append(entries, e)
		}
	}
	for _, a := range r.added {
		r.merge(byRoot[root[a.key]], a.key, a.candidate, a.found)
	}

	out := make([]internal.Official, 0, len(entries))
	for _, e := range entries {
		o := internal.Official{
			City:            r.city,
			Key:             e.key,
			Name:            e.displayName(),
			Role:            e.role.Value,
			District:        e.district.ptr(),
			Email:           e.email.ptr(),
			EmailConfidence: e.email.Confidence,
			Phone:           e.phone.ptr(),
			PhotoURL:        e.photo.ptr(),
			Bio:             e.bio.ptr(),
			TermStart:       e.termStart.ptr(),
			TermEnd:         e.termEnd.ptr(),
			Sources:         append([]string(nil), e.sources...),
		}
		if !e.role.Set {
			o.Role = internal.RoleUnknown
		}
		applyOverride(table, &o, e.aliases)
		out = append(out, o)
	}
	return out
}

// overrideTable re-keys the override rows the way roster names are keyed, so
// a row for "Mayor Jordan Wu" reaches the official "jordan wu".
func (r *Roster) overrideTable() *overrides.Table {
	table := overrides.NewTable()
	for _, e := range r.overrides.Entries() {
		name := util.NormalizeName(e.Name)
		if r.dialect != nil {
			name = r.dialect.StripRoleWords(name)
		}
		e.Name = name
		table.Set(e)
	}
	return table
}

func applyOverride(table *overrides.Table, o *internal.Official, aliases []string) {
	names := append([]string{o.Key}, aliases...)
	ov, ok := table.Lookup(names...)
	if !ok {
		return
	}
	if ov.District != nil {
		o.District = util.StringPtr(*ov.District)
		o.Overridden = true
	}
	if ov.TermStart != nil {
		o.TermStart = util.IntPtr(*ov.TermStart)
		o.Overridden = true
	}
	if ov.TermEnd != nil {
		o.TermEnd = util.IntPtr(*ov.TermEnd)
		o.Overridden = true
	}
	if o.Overridden && ov.Source != "" {
		o.Sources = append(o.Sources, "override:"+ov.Source)
	}
}

func (e *rosterEntry) displayName() string {
	if nf := e.names[e.key]; nf != nil && nf.Set {
		return nf.Value
	}
	return e.key
}
