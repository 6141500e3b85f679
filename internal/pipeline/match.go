package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"civicroster/internal"
	"civicroster/internal/util"
)

const (
	PatternFirstMiddleLast  = "first+middle+last"
	PatternFIMILast         = "fi+mi+last"
	PatternFIMiddleLast     = "fi+middle+last"
	PatternFirstMILast      = "first+mi+last"
	PatternFirstLast        = "first+last"
	PatternFirstDotLast     = "first.last"
	PatternFILast           = "fi+last"
	PatternFirstLastInitial = "first+li"
	PatternLast             = "last"
	PatternFirst            = "first"
)

const (
	maxTextKeyTokens = 4
	minPatternLen    = 2
)

var nameSuffixes = map[string]struct{}{"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}}

type namePattern struct {
	label string
	value string
}

type keyedArtifact struct {
	artifact internal.Artifact
	keys     []string
}

type MatchResult struct {
	Artifact   internal.Artifact
	Pattern    string
	Key        string
	Exact      bool
	Confidence internal.Confidence
	// Rank is the pattern's position in the specificity order, 0 is most specific.
	Rank int
}

// MoreSpecific orders two results for the same artifact.
func (r MatchResult) MoreSpecific(other MatchResult) bool {
	if r.Rank != other.Rank {
		return r.Rank < other.Rank
	}
	return r.Exact && !other.Exact
}

// Matcher binds harvested artifacts to a person's name by generating the
// usual username shapes from the name and comparing them to artifact keys.
type Matcher struct {
	dialect *Dialect
	logger  *slog.Logger
}

func NewMatcher(dialect *Dialect, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{dialect: dialect, logger: logger}
}

// Match returns the artifact whose key best fits name. Patterns are tried from
// most to least specific; within a pattern an exact key beats a prefix.
func (m *Matcher) Match(name string, artifacts []internal.Artifact, domainFilter string) (MatchResult, bool) {
	patterns := NamePatterns(name)
	if len(patterns) == 0 || len(artifacts) == 0 {
		return MatchResult{}, false
	}

	domainFilter = strings.ToLower(strings.TrimSpace(domainFilter))
	pool := make([]keyedArtifact, 0, len(artifacts))
	for _, a := range artifacts {
		if domainFilter != "" && !strings.Contains(strings.ToLower(a.Value), domainFilter) {
			continue
		}
		if keys := m.ArtifactKeys(a); len(keys) > 0 {
			pool = append(pool, keyedArtifact{artifact: a, keys: keys})
		}
	}

	for rank, p := range patterns {
		for _, exact := range []bool{true, false} {
			for _, k := range pool {
				for _, key := range k.keys {
					if (exact && key == p.value) || (!exact && key != p.value && strings.HasPrefix(key, p.value)) {
						return MatchResult{
							Artifact:   k.artifact,
							Pattern:    p.label,
							Key:        key,
							Exact:      exact,
							Confidence: patternConfidence(p.label),
							Rank:       rank,
						}, true
					}
				}
			}
		}
	}

	m.logClosest(name, patterns, pool)
	return MatchResult{}, false
}

func (m *Matcher) logClosest(name string, patterns []namePattern, pool []keyedArtifact) {
	if !m.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	target := ""
	for _, p := range patterns {
		if p.label == PatternFirstLast {
			target = p.value
			break
		}
	}
	bestKey, bestValue, best := "", "", 0.0
	for _, k := range pool {
		for _, key := range k.keys {
			if sim := matchr.JaroWinkler(target, key, false); sim > best {
				best, bestKey, bestValue = sim, key, k.artifact.Value
			}
		}
	}
	m.logger.Debug("no artifact match", "name", name, "closest_key", bestKey, "closest", bestValue, "similarity", best)
}

// NamePatterns lists the candidate keys for a name, most specific first.
// Patterns shorter than two characters and repeats are dropped.
func NamePatterns(name string) []namePattern {
	tokens := util.NameTokens(name)
	for len(tokens) > 2 {
		if _, ok := nameSuffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return nil
	}

	first := tokens[0]
	last := tokens[len(tokens)-1]
	fi := initial(first)
	li := initial(last)

	var candidates []namePattern
	if len(tokens) >= 3 {
		middle := strings.Join(tokens[1:len(tokens)-1], "")
		mi := initial(tokens[1])
		candidates = append(candidates,
			namePattern{PatternFirstMiddleLast, first + middle + last},
			namePattern{PatternFIMILast, fi + mi + last},
			namePattern{PatternFIMiddleLast, fi + middle + last},
			namePattern{PatternFirstMILast, first + mi + last},
		)
	}
	if len(tokens) >= 2 {
		candidates = append(candidates,
			namePattern{PatternFirstLast, first + last},
			namePattern{PatternFirstDotLast, first + "." + last},
			namePattern{PatternFILast, fi + last},
			namePattern{PatternFirstLastInitial, first + li},
			namePattern{PatternLast, last},
		)
	}
	candidates = append(candidates, namePattern{PatternFirst, first})

	seen := map[string]struct{}{}
	out := make([]namePattern, 0, len(candidates))
	for _, c := range candidates {
		if utf8.RuneCountInString(c.value) < minPatternLen {
			continue
		}
		if _, ok := seen[c.value]; ok {
			continue
		}
		seen[c.value] = struct{}{}
		out = append(out, c)
	}
	return out
}

func patternConfidence(label string) internal.Confidence {
	if label == PatternLast || label == PatternFirst {
		return internal.ConfidenceLow
	}
	return internal.ConfidenceHigh
}

func initial(token string) string {
	r, _ := utf8.DecodeRuneInString(token)
	if r == utf8.RuneError {
		return ""
	}
	return string(r)
}

// ArtifactKeys derives the comparable keys of an artifact: the local part of
// an email, the file stem of a photo plus its alt text, and the leading name
// words of bio or phone context.
func (m *Matcher) ArtifactKeys(a internal.Artifact) []string {
	var keys []string
	switch a.Kind {
	case internal.ArtifactEmail:
		local := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(a.Value)), "mailto:")
		if at := strings.IndexByte(local, '@'); at >= 0 {
			local = local[:at]
		}
		if key := strings.ReplaceAll(util.NormalizeName(local), " ", ""); key != "" {
			keys = append(keys, key)
		}
	case internal.ArtifactPhoto:
		stem := photoStem(a.Value)
		if key := strings.Join(util.NameTokens(stem), ""); key != "" {
			keys = append(keys, key)
		}
		keys = append(keys, m.textKeys(stem)...)
		keys = append(keys, m.textKeys(a.Context)...)
	default:
		keys = append(keys, m.textKeys(a.Value)...)
		keys = append(keys, m.textKeys(a.Context)...)
	}
	return dedupeStrings(keys)
}

// textKeys turns the opening words of each line of free text into keys,
// after dropping leading role and filler words
// ("Councilmember Lee Fink said" -> "leefink", "lee.fink", ...).
func (m *Matcher) textKeys(text string) []string {
	var keys []string
	for _, line := range strings.Split(text, "\n") {
		tokens := util.NameTokens(line)
		for len(tokens) > 0 && m.dialect != nil && (m.dialect.IsSkip(tokens[0]) || m.dialect.IsRoleWord(tokens[0])) {
			tokens = tokens[1:]
		}
		if len(tokens) > maxTextKeyTokens {
			tokens = tokens[:maxTextKeyTokens]
		}
		for n := len(tokens); n >= 1; n-- {
			keys = append(keys, strings.Join(tokens[:n], ""))
			if n > 1 {
				keys = append(keys, strings.Join(tokens[:n], "."))
			}
		}
	}
	return keys
}

func photoStem(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func dedupeStrings(values []string) []string {
	seen := map[string]struct{}{}
	out := values[:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
