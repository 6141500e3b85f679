package pipeline

import (
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/util"
)

var (
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{M}]+(?:['’][\p{L}\p{M}]+)*|\d+`)
	districtPattern = regexp.MustCompile(`\b((?i:district|ward|seat))\s+(?:(?i:no)\.?\s*|#\s*)?(\d{1,2}\b|[A-H]\b|(?i:one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b)`)
	atLargePattern  = regexp.MustCompile(`(?i)\bat[\s-]+large\b`)
	slugDistrict    = regexp.MustCompile(`^(district|ward)-(\d{1,2})-`)
)

var pageExtensions = map[string]bool{
	".html": true, ".htm": true, ".php": true, ".asp": true, ".aspx": true, ".jsp": true, ".cfm": true,
}

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5", "six": "6",
	"seven": "7", "eight": "8", "nine": "9", "ten": "10", "eleven": "11", "twelve": "12",
}

type token struct {
	text    string
	lower   string
	start   int
	end     int
	initial bool
}

type textDoc struct {
	text string
	toks []token
}

func (d *textDoc) gap(i int) string {
	if i <= 0 || i >= len(d.toks) {
		return ""
	}
	return d.text[d.toks[i-1].end:d.toks[i].start]
}

// tokenize splits text into words. Hyphen-joined words stay one token and a
// single capital followed by a period becomes an initial ("K.").
func tokenize(text string) *textDoc {
	doc := &textDoc{text: text}
	for _, loc := range tokenPattern.FindAllStringIndex(text, -1) {
		t := token{text: text[loc[0]:loc[1]], start: loc[0], end: loc[1]}
		if n := len(doc.toks); n > 0 && doc.gap0(loc[0]) == "-" && !isDigits(t.text) && !isDigits(doc.toks[n-1].text) && !doc.toks[n-1].initial {
			prev := &doc.toks[n-1]
			prev.text = text[prev.start:loc[1]]
			prev.end = loc[1]
			prev.lower = strings.ToLower(prev.text)
			continue
		}
		if utf8.RuneCountInString(t.text) == 1 && util.IsCapitalized(t.text) && loc[1] < len(text) && text[loc[1]] == '.' {
			t.initial = true
			t.end++
			t.text += "."
		}
		t.lower = strings.ToLower(t.text)
		doc.toks = append(doc.toks, t)
	}
	return doc
}

// gap0 is the text between the last token and a byte offset.
func (d *textDoc) gap0(offset int) string {
	if len(d.toks) == 0 {
		return ""
	}
	return d.text[d.toks[len(d.toks)-1].end:offset]
}

// nameGap allows only horizontal whitespace inside a name.
func nameGap(g string) bool {
	if g == "" {
		return false
	}
	for _, r := range g {
		if r != ' ' && r != '\t' && r != ' ' {
			return false
		}
	}
	return true
}

// roleGap allows whitespace, line breaks and list punctuation between a role
// and its name, but not a sentence end.
func roleGap(g string) bool {
	return g != "" && !strings.ContainsAny(g, ".!?;")
}

func hasNewline(g string) bool {
	return strings.ContainsAny(g, "\n\r")
}

type nameSpan struct {
	first int
	last  int
	raw   string
}

type roleHit struct {
	first int
	last  int
	role  internal.Role
}

type hitSpan struct {
	lo, hi int
}

// Extractor turns page text or URL slugs into candidate records.
type Extractor struct {
	dialect       *Dialect
	nameOrder     string
	termLength    int
	contextWindow int
	bareYear      bool
	logger        *slog.Logger
}

func NewExtractor(city config.CityConfig, dialect *Dialect, logger *slog.Logger) *Extractor {
	if dialect == nil {
		dialect = NewDialect(city)
	}
	if logger == nil {
		logger = slog.Default()
	}
	window := city.ContextWindow
	if window <= 0 {
		window = 160
	}
	return &Extractor{
		dialect:       dialect,
		nameOrder:     util.FirstNonEmpty(city.NameOrder, config.NameOrderAuto),
		termLength:    city.TermLength,
		contextWindow: window,
		bareYear:      city.BareYear(),
		logger:        logger,
	}
}

// ExtractText finds every role keyword in text, pairs it with an adjacent
// name and reads district and term details from the surrounding context.
// Candidates come back in order of first detection with duplicates folded.
func (e *Extractor) ExtractText(text string, rank internal.SourceRank, sourceURL string) []internal.CandidateRecord {
	doc := tokenize(text)
	hits := e.findRoles(doc)
	if len(hits) == 0 {
		return nil
	}

	claimed := make([]bool, len(doc.toks))
	for _, h := range hits {
		for k := h.first; k <= h.last; k++ {
			claimed[k] = true
		}
	}
	preferForward := e.preferForward(doc, hits, claimed)

	var out []internal.CandidateRecord
	var spans []hitSpan
	for _, h := range hits {
		name, ok := e.pickName(doc, h, claimed, preferForward)
		if !ok {
			e.logger.Debug("role without name", "role", h.role, "at", doc.toks[h.first].start)
			continue
		}
		for k := name.first; k <= name.last; k++ {
			claimed[k] = true
		}
		first, last := min(h.first, name.first), max(h.last, name.last)
		spans = append(spans, hitSpan{lo: doc.toks[first].start, hi: doc.toks[last].end})
		out = append(out, internal.CandidateRecord{
			RawName:        name.raw,
			NormalizedName: util.NormalizeName(name.raw),
			Role:           h.role,
			SourceRank:     rank,
			SourceURL:      sourceURL,
		})
	}

	for i := range out {
		lo, hi := e.window(text, spans, i)
		ctx := text[lo:hi]
		out[i].District = nearestDistrict(ctx, spans[i].lo-lo, spans[i].hi-lo)
		term := util.ParseTerm(ctx, e.termLength, e.bareYear)
		out[i].TermStart, out[i].TermEnd = term.Start, term.End
	}

	return dedupeCandidates(out)
}

func (e *Extractor) findRoles(doc *textDoc) []roleHit {
	var hits []roleHit
	for i := 0; i < len(doc.toks); {
		hit, ok := e.roleAt(doc, i)
		if !ok {
			i++
			continue
		}
		hits = append(hits, hit)
		i = hit.last + 1
	}
	return hits
}

func (e *Extractor) roleAt(doc *textDoc, i int) (roleHit, bool) {
	for _, p := range e.dialect.phrases {
		n := len(p.words)
		if i+n > len(doc.toks) {
			continue
		}
		matched := true
		for k := 0; k < n; k++ {
			if doc.toks[i+k].lower != p.words[k] || (k > 0 && !nameGap(doc.gap(i+k))) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		if n == 1 && !strings.Contains(p.words[0], "-") && e.dialect.bareBlocked(doc, i, p.words[0]) {
			return roleHit{}, false
		}
		return roleHit{first: i, last: i + n - 1, role: p.role}, true
	}
	return roleHit{}, false
}

// preferForward decides the layout for role/name pairs spread over lines:
// role_first and name_first are fixed, auto votes on the page's own layout.
func (e *Extractor) preferForward(doc *textDoc, hits []roleHit, claimed []bool) bool {
	switch e.nameOrder {
	case config.NameOrderRoleFirst:
		return true
	case config.NameOrderNameFirst:
		return false
	}
	forwardOnly, backwardOnly := 0, 0
	for _, h := range hits {
		_, fok := e.forwardName(doc, h, claimed)
		_, bok := e.backwardName(doc, h, claimed)
		switch {
		case fok && !bok:
			forwardOnly++
		case bok && !fok:
			backwardOnly++
		}
	}
	return backwardOnly <= forwardOnly
}

func (e *Extractor) pickName(doc *textDoc, h roleHit, claimed []bool, preferForward bool) (nameSpan, bool) {
	fwd, fok := e.forwardName(doc, h, claimed)
	bwd, bok := e.backwardName(doc, h, claimed)

	if e.nameOrder == config.NameOrderAuto {
		fSame := fok && !hasNewline(doc.gap(h.last+1))
		bSame := bok && !hasNewline(doc.gap(h.first))
		switch {
		case fSame && !bSame:
			return fwd, true
		case bSame && !fSame:
			return bwd, true
		}
	}

	if preferForward {
		if fok {
			return fwd, true
		}
		return bwd, bok
	}
	if bok {
		return bwd, true
	}
	return fwd, fok
}

func (e *Extractor) forwardName(doc *textDoc, h roleHit, claimed []bool) (nameSpan, bool) {
	j := h.last + 1
	if j >= len(doc.toks) || !roleGap(doc.gap(j)) {
		return nameSpan{}, false
	}
	return e.nameForward(doc, j, claimed)
}

func (e *Extractor) backwardName(doc *textDoc, h roleHit, claimed []bool) (nameSpan, bool) {
	i := h.first - 1
	if i < 0 || !roleGap(doc.gap(h.first)) {
		return nameSpan{}, false
	}
	return e.nameBackward(doc, i, claimed)
}

// nameForward reads 2-3 capitalized words starting at j, allowing one middle
// initial. A leading skip word drops the candidate.
func (e *Extractor) nameForward(doc *textDoc, j int, claimed []bool) (nameSpan, bool) {
	var idx []int
	words := 0
	hasInitial := false
	for k := j; k < len(doc.toks) && words < 3; k++ {
		t := doc.toks[k]
		if claimed[k] || !util.IsCapitalized(t.text) {
			break
		}
		if k > j && !nameGap(doc.gap(k)) {
			break
		}
		if t.initial {
			if words == 0 || hasInitial {
				break
			}
			hasInitial = true
			idx = append(idx, k)
			continue
		}
		if e.dialect.IsSkip(t.lower) || e.dialect.IsRoleWord(t.lower) {
			if k == j {
				e.logger.Debug("name starts with skip word", "token", t.text)
				return nameSpan{}, false
			}
			break
		}
		idx = append(idx, k)
		words++
	}
	return e.buildName(doc, idx, words)
}

// nameBackward reads the name that ends at token i. Leading skip words are
// trimmed ("Meet Jordan Wu") before the 2-word minimum is applied.
func (e *Extractor) nameBackward(doc *textDoc, i int, claimed []bool) (nameSpan, bool) {
	var idx []int
	words := 0
	hasInitial := false
	for k := i; k >= 0 && words < 3; k-- {
		t := doc.toks[k]
		if claimed[k] || !util.IsCapitalized(t.text) || e.dialect.IsRoleWord(t.lower) {
			break
		}
		if k < i && !nameGap(doc.gap(k+1)) {
			break
		}
		if t.initial {
			if words == 0 || hasInitial {
				break
			}
			hasInitial = true
		} else {
			words++
		}
		idx = append(idx, k)
	}
	for l, r := 0, len(idx)-1; l < r; l, r = l+1, r-1 {
		idx[l], idx[r] = idx[r], idx[l]
	}
	for len(idx) > 0 && (doc.toks[idx[0]].initial || e.dialect.IsSkip(doc.toks[idx[0]].lower)) {
		if !doc.toks[idx[0]].initial {
			words--
		}
		idx = idx[1:]
	}
	for _, k := range idx {
		if e.dialect.IsSkip(doc.toks[k].lower) {
			return nameSpan{}, false
		}
	}
	return e.buildName(doc, idx, words)
}

func (e *Extractor) buildName(doc *textDoc, idx []int, words int) (nameSpan, bool) {
	for len(idx) > 0 && doc.toks[idx[len(idx)-1]].initial {
		idx = idx[:len(idx)-1]
	}
	if words < 2 || words > 3 || len(idx) == 0 {
		return nameSpan{}, false
	}
	parts := make([]string, 0, len(idx))
	for _, k := range idx {
		parts = append(parts, doc.toks[k].text)
	}
	return nameSpan{first: idx[0], last: idx[len(idx)-1], raw: strings.Join(parts, " ")}, true
}

// window returns the context range for candidate i: the configured radius
// around its span, clipped halfway to the neighbouring candidates.
func (e *Extractor) window(text string, spans []hitSpan, i int) (int, int) {
	lo := max(spans[i].lo-e.contextWindow, 0)
	hi := min(spans[i].hi+e.contextWindow, len(text))
	if i > 0 {
		lo = max(lo, (spans[i-1].hi+spans[i].lo)/2)
	}
	if i+1 < len(spans) {
		hi = min(hi, (spans[i].hi+spans[i+1].lo)/2)
	}
	lo = min(lo, spans[i].lo)
	hi = max(hi, spans[i].hi)
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return lo, hi
}

// nearestDistrict picks the district label closest to the candidate span
// [lo, hi) within ctx.
func nearestDistrict(ctx string, lo, hi int) *string {
	best := -1
	var label string
	consider := func(start, end int, value string) {
		dist := 0
		switch {
		case end <= lo:
			dist = lo - end
		case start >= hi:
			dist = start - hi
		}
		if best < 0 || dist < best {
			best = dist
			label = value
		}
	}

	for _, m := range districtPattern.FindAllStringSubmatchIndex(ctx, -1) {
		kind := util.TitleWord(strings.ToLower(ctx[m[2]:m[3]]))
		num := ctx[m[4]:m[5]]
		if digit, ok := numberWords[strings.ToLower(num)]; ok {
			num = digit
		}
		consider(m[0], m[1], kind+" "+strings.ToUpper(num))
	}
	for _, m := range atLargePattern.FindAllStringIndex(ctx, -1) {
		consider(m[0], m[1], "At-Large")
	}

	if best < 0 {
		return nil
	}
	return util.StringPtr(label)
}

// ExtractURL decodes a profile URL slug such as "/council/mayor-pro-tem-lee-k-fink"
// into a candidate. Role and district prefixes are stripped first.
func (e *Extractor) ExtractURL(rawURL string) (internal.CandidateRecord, bool) {
	seg := lastSegment(rawURL)
	if seg == "" {
		return internal.CandidateRecord{}, false
	}

	role := internal.RoleUnknown
	var district *string
	for changed := true; changed; {
		changed = false
		for _, p := range e.dialect.prefixes {
			if strings.HasPrefix(seg, p.prefix) {
				seg = strings.TrimPrefix(seg, p.prefix)
				if role == internal.RoleUnknown {
					role = p.role
				}
				changed = true
				break
			}
		}
		if m := slugDistrict.FindStringSubmatch(seg); m != nil {
			district = util.StringPtr(util.TitleWord(m[1]) + " " + m[2])
			seg = seg[len(m[0]):]
			changed = true
		}
	}

	words := strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
	parts := make([]string, 0, len(words))
	count := 0
	for i, w := range words {
		if strings.ContainsAny(w, "0123456789") {
			return internal.CandidateRecord{}, false
		}
		if utf8.RuneCountInString(w) == 1 {
			parts = append(parts, strings.ToUpper(w)+".")
			continue
		}
		if (i == 0 && e.dialect.IsSkip(w)) || e.dialect.IsRoleWord(w) {
			return internal.CandidateRecord{}, false
		}
		parts = append(parts, util.TitleWord(w))
		count++
	}
	if count < 2 || count > 3 || strings.HasSuffix(parts[0], ".") {
		return internal.CandidateRecord{}, false
	}

	raw := strings.Join(parts, " ")
	return internal.CandidateRecord{
		RawName:        raw,
		NormalizedName: util.NormalizeName(raw),
		Role:           role,
		District:       district,
		SourceRank:     internal.RankInferredURL,
		SourceURL:      rawURL,
	}, true
}

func lastSegment(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	seg := path.Base(p)
	if seg == "." || seg == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	if ext := strings.ToLower(path.Ext(seg)); pageExtensions[ext] {
		seg = strings.TrimSuffix(seg, path.Ext(seg))
	}
	return strings.ToLower(seg)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
