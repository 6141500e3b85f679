package pipeline

import (
	"log/slog"
	"strings"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/overrides"
)

const phoneContextLines = 2

// CityRun drives the engine over every page of one city and owns the roster
// the pages are folded into.
type CityRun struct {
	city      config.CityConfig
	dialect   *Dialect
	extractor *Extractor
	matcher   *Matcher
	roster    *Roster
	logger    *slog.Logger
}

func NewCityRun(city config.CityConfig, table *overrides.Table, logger *slog.Logger) *CityRun {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("city", city.Slug)
	dialect := NewDialect(city)
	return &CityRun{
		city:      city,
		dialect:   dialect,
		extractor: NewExtractor(city, dialect, logger),
		matcher:   NewMatcher(dialect, logger),
		roster:    NewRoster(city.Name, dialect, table, logger),
		logger:    logger,
	}
}

func (r *CityRun) Dialect() *Dialect { return r.dialect }


// personGroup is the set of candidates on one page that name the same person,
// e.g. the heading of a profile page and its URL slug.
type personGroup struct {
	name    string
	members []internal.CandidateRecord
	found   []MatchResult
}

type claim struct {
	group  int
	result MatchResult
}

// AddPage extracts candidates from one page, binds the page's artifacts to
// them and merges the result into the roster. It returns the number of
// candidates found.
func (r *CityRun) AddPage(page internal.PageInput) (int, error) {
	rank := page.SourceRank
	if rank == 0 {
		det := DetectPageKind(page, r.dialect)
		rank = det.Rank
		r.logger.Debug("page kind detected", "url", page.URL, "rank", rank, "role_hits", det.RoleHits, "emails", det.Emails)
	}

	candidates := r.pageCandidates(page, rank)
	if len(candidates) == 0 {
		r.logger.Debug("page without candidates", "url", page.URL)
		return 0, nil
	}

	groups := r.groupCandidates(candidates)
	pools := r.artifactPools(page)
	for _, kind := range []internal.ArtifactKind{internal.ArtifactEmail, internal.ArtifactPhone, internal.ArtifactPhoto, internal.ArtifactBio} {
		r.assign(groups, kind, pools[kind])
	}

	for _, g := range groups {
		for _, c := range g.members {
			if err := r.roster.Add(c, g.found); err != nil {
				return 0, err
			}
		}
	}
	return len(candidates), nil
}

// pageCandidates extracts the text candidates of a page plus its URL slug.
// A slug only counts when it carried a role or district prefix or names a
// person the text also names; "/news/press-releases" is not an official.
func (r *CityRun) pageCandidates(page internal.PageInput, rank internal.SourceRank) []internal.CandidateRecord {
	candidates := r.extractor.ExtractText(page.Text, rank, page.URL)
	c, ok := r.extractor.ExtractURL(page.URL)
	if !ok {
		return candidates
	}
	if c.Role != internal.RoleUnknown || c.District != nil {
		return append(candidates, c)
	}
	slug := strings.Fields(r.dialect.StripRoleWords(c.NormalizedName))
	for _, t := range candidates {
		key := strings.Fields(r.dialect.StripRoleWords(t.NormalizedName))
		if strings.Join(key, " ") == strings.Join(slug, " ") || tokenContained(key, slug) {
			return append(candidates, c)
		}
	}
	r.logger.Debug("url slug not corroborated", "url", page.URL, "name", c.RawName)
	return candidates
}

func (r *CityRun) Finalize() []internal.Official {
	return r.roster.Finalize()
}

func (r *CityRun) groupCandidates(candidates []internal.CandidateRecord) []*personGroup {
	var groups []*personGroup
	for _, c := range candidates {
		key := strings.Fields(r.dialect.StripRoleWords(c.NormalizedName))
		var match *personGroup
		for _, g := range groups {
			gk := strings.Fields(r.dialect.StripRoleWords(g.members[0].NormalizedName))
			if strings.Join(gk, " ") == strings.Join(key, " ") || tokenContained(gk, key) {
				match = g
				break
			}
		}
		if match == nil {
			groups = append(groups, &personGroup{name: c.RawName, members: []internal.CandidateRecord{c}})
			continue
		}
		match.members = append(match.members, c)
		if len(c.RawName) > len(match.name) {
			match.name = c.RawName
		}
	}
	return groups
}

func (r *CityRun) artifactPools(page internal.PageInput) map[internal.ArtifactKind][]internal.Artifact {
	pools := map[internal.ArtifactKind][]internal.Artifact{}
	for _, e := range page.Emails {
		pools[internal.ArtifactEmail] = append(pools[internal.ArtifactEmail], internal.Artifact{Kind: internal.ArtifactEmail, Value: e})
	}
	lines := strings.Split(page.Text, "\n")
	for _, p := range page.Phones {
		pools[internal.ArtifactPhone] = append(pools[internal.ArtifactPhone], internal.Artifact{
			Kind:    internal.ArtifactPhone,
			Value:   p,
			Context: phoneContext(lines, p),
		})
	}
	for _, img := range page.Images {
		pools[internal.ArtifactPhoto] = append(pools[internal.ArtifactPhoto], internal.Artifact{Kind: internal.ArtifactPhoto, Value: img.Src, Context: img.Alt})
	}
	for _, b := range page.Bios {
		pools[internal.ArtifactBio] = append(pools[internal.ArtifactBio], internal.Artifact{Kind: internal.ArtifactBio, Value: b})
	}
	return pools
}

// phoneContext is the line holding the number plus the lines just above it,
// where directory pages put the owner's name.
func phoneContext(lines []string, phone string) string {
	for i, line := range lines {
		if !strings.Contains(line, phone) {
			continue
		}
		lo := max(i-phoneContextLines, 0)
		return strings.Join(lines[lo:i+1], "\n")
	}
	return ""
}

// assign binds artifacts of one kind to person groups. When two people claim
// the same artifact the more specific pattern wins; an even tie leaves it to
// nobody. Losers retry against what is left.
func (r *CityRun) assign(groups []*personGroup, kind internal.ArtifactKind, pool []internal.Artifact) {
	if len(pool) == 0 {
		return
	}
	taken := map[string]bool{}
	settled := make([]bool, len(groups))

	for round := 0; round <= len(groups); round++ {
		claims := map[string][]claim{}
		pending := 0
		for gi, g := range groups {
			if settled[gi] {
				continue
			}
			available := make([]internal.Artifact, 0, len(pool))
			for _, a := range pool {
				if !taken[a.Value] {
					available = append(available, a)
				}
			}
			res, ok := r.match(g.name, kind, available)
			if !ok {
				settled[gi] = true
				continue
			}
			claims[res.Artifact.Value] = append(claims[res.Artifact.Value], claim{group: gi, result: res})
			pending++
		}
		if pending == 0 {
			return
		}

		for value, cs := range claims {
			best := cs[0]
			tie := false
			for _, c := range cs[1:] {
				switch {
				case c.result.MoreSpecific(best.result):
					best, tie = c, false
				case !best.result.MoreSpecific(c.result):
					tie = true
				}
			}
			taken[value] = true
			if tie {
				r.logger.Debug("artifact claimed by several officials", "kind", kind, "value", value, "claims", len(cs))
				continue
			}
			groups[best.group].found = append(groups[best.group].found, best.result)
			settled[best.group] = true
		}
	}
}

func (r *CityRun) match(name string, kind internal.ArtifactKind, pool []internal.Artifact) (MatchResult, bool) {
	if kind == internal.ArtifactEmail && r.city.EmailDomain != "" {
		if res, ok := r.matcher.Match(name, pool, r.city.EmailDomain); ok {
			return res, true
		}
	}
	return r.matcher.Match(name, pool, "")
}
