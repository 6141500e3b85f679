package pipeline

import (
	"civicroster/internal"
)

const rosterThreshold = 3

type DetectResult struct {
	Rank     internal.SourceRank
	RoleHits int
	Emails   int
	Reason   string
}

// DetectPageKind tells a council roster page from a single member's profile.
// Rosters list several officials, so they carry several role keywords or
// several email addresses.
func DetectPageKind(page internal.PageInput, dialect *Dialect) DetectResult {
	hits := 0
	if dialect != nil {
		e := &Extractor{dialect: dialect}
		hits = len(e.findRoles(tokenize(page.Text)))
	}

	res := DetectResult{Rank: internal.RankProfile, RoleHits: hits, Emails: len(page.Emails), Reason: "rules_profile"}
	if hits >= rosterThreshold || len(page.Emails) >= rosterThreshold {
		res.Rank = internal.RankRoster
		res.Reason = "rules_roster"
	}
	return res
}
