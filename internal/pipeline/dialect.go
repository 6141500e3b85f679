package pipeline

import (
	"sort"
	"strings"

	"civicroster/internal"
	"civicroster/internal/config"
)

type rolePhrase struct {
	words []string
	role  internal.Role
}

type slugPrefix struct {
	prefix string
	role   internal.Role
}

// Dialect is the immutable word knowledge of one city's site: role phrases,
// skip words and URL slug prefixes. Build it once per city run.
type Dialect struct {
	phrases   []rolePhrase
	modifiers map[string]map[string]struct{}
	roleWords map[string]struct{}
	skip      map[string]struct{}
	prefixes  []slugPrefix
}

func NewDialect(city config.CityConfig) *Dialect {
	d := &Dialect{
		modifiers: map[string]map[string]struct{}{},
		roleWords: map[string]struct{}{},
		skip:      map[string]struct{}{},
	}

	seen := map[string]struct{}{}
	for _, kw := range city.RoleKeywords {
		words := strings.Fields(strings.ToLower(kw.Phrase))
		if len(words) == 0 {
			continue
		}
		role := internal.ParseRole(kw.Role)
		for _, variant := range hyphenVariants(words) {
			key := strings.Join(variant, " ")
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			d.phrases = append(d.phrases, rolePhrase{words: variant, role: role})
		}
		for _, w := range words {
			d.roleWords[w] = struct{}{}
		}
	}
	// Longer phrases first so "mayor pro tem" is tried before "mayor".
	sort.SliceStable(d.phrases, func(i, j int) bool {
		return phraseLen(d.phrases[i]) > phraseLen(d.phrases[j])
	})

	for _, bare := range d.phrases {
		if len(bare.words) != 1 {
			continue
		}
		w := bare.words[0]
		for _, compound := range d.phrases {
			parts := splitWords(compound.words)
			if len(parts) < 2 || !contains(parts, w) {
				continue
			}
			for _, p := range parts {
				if p == w {
					continue
				}
				if d.modifiers[w] == nil {
					d.modifiers[w] = map[string]struct{}{}
				}
				d.modifiers[w][p] = struct{}{}
			}
		}
	}

	for _, w := range city.SkipWords {
		d.skip[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	for _, p := range city.SlugPrefixes {
		prefix := strings.ToLower(strings.TrimSpace(p.Prefix))
		if prefix == "" {
			continue
		}
		if !strings.HasSuffix(prefix, "-") {
			prefix += "-"
		}
		d.prefixes = append(d.prefixes, slugPrefix{prefix: prefix, role: internal.ParseRole(p.Role)})
	}
	sort.SliceStable(d.prefixes, func(i, j int) bool {
		return len(d.prefixes[i].prefix) > len(d.prefixes[j].prefix)
	})

	return d
}

func (d *Dialect) IsSkip(word string) bool {
	_, ok := d.skip[strings.ToLower(word)]
	return ok
}

// IsRoleWord reports whether any part of word belongs to a role phrase.
func (d *Dialect) IsRoleWord(word string) bool {
	for _, part := range strings.Split(strings.ToLower(word), "-") {
		if _, ok := d.roleWords[part]; ok {
			return true
		}
	}
	return false
}

// StripRoleWords removes leading and trailing role words from a normalized
// name, so "mayor jordan wu" and "jordan wu" share a form.
func (d *Dialect) StripRoleWords(normalized string) string {
	fields := strings.Fields(normalized)
	for len(fields) > 0 && d.IsRoleWord(fields[0]) {
		fields = fields[1:]
	}
	for len(fields) > 0 && d.IsRoleWord(fields[len(fields)-1]) {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// bareBlocked rejects a single-word keyword when a longer phrase's other
// words sit within two tokens of it on the same line ("Mayor, Pro Tem").
func (d *Dialect) bareBlocked(doc *textDoc, i int, word string) bool {
	mods := d.modifiers[word]
	if len(mods) == 0 {
		return false
	}
	near := func(k int) bool {
		for _, part := range strings.Split(doc.toks[k].lower, "-") {
			if _, ok := mods[part]; ok {
				return true
			}
		}
		return false
	}
	for k := i + 1; k <= i+2 && k < len(doc.toks); k++ {
		if hasNewline(doc.gap(k)) {
			break
		}
		if near(k) {
			return true
		}
	}
	for k := i - 1; k >= i-2 && k >= 0; k-- {
		if hasNewline(doc.gap(k + 1)) {
			break
		}
		if near(k) {
			return true
		}
	}
	return false
}

// hyphenVariants yields every way of joining adjacent words with hyphens,
// since hyphenated words are read as a single token ("Pro-Tem").
func hyphenVariants(words []string) [][]string {
	if len(words) == 1 {
		return [][]string{words}
	}
	var out [][]string
	for _, rest := range hyphenVariants(words[1:]) {
		split := append([]string{words[0]}, rest...)
		joined := append([]string{words[0] + "-" + rest[0]}, rest[1:]...)
		out = append(out, split, joined)
	}
	return out
}

func phraseLen(p rolePhrase) int {
	return len(splitWords(p.words))
}

func splitWords(words []string) []string {
	var out []string
	for _, w := range words {
		out = append(out, strings.Split(w, "-")...)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
