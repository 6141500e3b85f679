package pipeline

import (
	"civicroster/internal"
)

// dedupeCandidates folds candidates that share a normalized name within one
// pass. The first record keeps its position; later duplicates only fill
// fields the first left empty.
func dedupeCandidates(items []internal.CandidateRecord) []internal.CandidateRecord {
	out := make([]internal.CandidateRecord, 0, len(items))
	index := map[string]int{}
	for _, item := range items {
		if item.NormalizedName == "" {
			continue
		}
		pos, ok := index[item.NormalizedName]
		if !ok {
			index[item.NormalizedName] = len(out)
			out = append(out, item)
			continue
		}
		first := &out[pos]
		if first.Role == internal.RoleUnknown || first.Role == "" {
			first.Role = item.Role
		}
		if first.District == nil {
			first.District = item.District
		}
		if first.TermStart == nil {
			first.TermStart = item.TermStart
		}
		if first.TermEnd == nil {
			first.TermEnd = item.TermEnd
		}
	}
	return out
}
