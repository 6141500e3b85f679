package pipeline

import (
	"log/slog"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/harvest"
)

type OneShotResult struct {
	Page       internal.PageInput
	Rank       internal.SourceRank
	Candidates []internal.CandidateRecord
	Officials  []internal.Official
}

// ExtractSnapshot runs a single saved page through the engine without
// touching the store.
func ExtractSnapshot(path, pageURL string, city config.CityConfig, logger *slog.Logger) (OneShotResult, error) {
	page, err := harvest.Load(path, pageURL)
	if err != nil {
		return OneShotResult{}, err
	}

	run := NewCityRun(city, nil, logger)
	rank := page.SourceRank
	if rank == 0 {
		rank = DetectPageKind(page, run.Dialect()).Rank
		page.SourceRank = rank
	}

	candidates := run.pageCandidates(page, rank)
	if _, err := run.AddPage(page); err != nil {
		return OneShotResult{}, err
	}
	return OneShotResult{Page: page, Rank: rank, Candidates: candidates, Officials: run.Finalize()}, nil
}
