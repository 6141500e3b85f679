package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"civicroster/internal"
	"civicroster/internal/config"
	"civicroster/internal/harvest"
	"civicroster/internal/overrides"
	"civicroster/internal/storage"
)

type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	sheets *overrides.SheetSource
	logger *slog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingService{db: db, cfg: cfg, logger: logger}
}

// WithSheets enables the Google Sheet override source for cities that name one.
func (s *ProcessingService) WithSheets(src *overrides.SheetSource) *ProcessingService {
	s.sheets = src
	return s
}

type RunResult struct {
	RunID      string
	City       string
	Pages      int
	Failed     int
	Candidates int
	Officials  []internal.Official
	ExportPath string
	Duration   time.Duration
}

// RunCity harvests every configured page of a city, folds them into one
// roster and stores and exports the result. Unreadable pages are logged and
// skipped.
func (s *ProcessingService) RunCity(ctx context.Context, city config.CityConfig) (RunResult, error) {
	start := time.Now()
	logger := s.logger.With("city", city.Slug)
	row := internal.RunRow{ID: uuid.NewString(), City: city.Slug, Status: internal.RunRunning}
	if err := s.db.InsertRun(row); err != nil {
		return RunResult{}, fmt.Errorf("record run: %w", err)
	}

	res, err := s.runCity(ctx, city, row.ID, logger)
	res.Duration = time.Since(start)

	row.Pages, row.Candidates, row.Officials = res.Pages, res.Candidates, len(res.Officials)
	row.Status = internal.RunDone
	if err != nil {
		row.Status = internal.RunFailed
		row.Error = err.Error()
	}
	if ferr := s.db.FinishRun(row); ferr != nil && err == nil {
		err = fmt.Errorf("finish run: %w", ferr)
	}
	if err != nil {
		logger.Error("city run failed", "run", row.ID, "error", err)
		return res, err
	}

	logger.Info("city run done", "run", row.ID, "pages", res.Pages, "failed", res.Failed,
		"candidates", res.Candidates, "officials", len(res.Officials), "ms", res.Duration.Milliseconds())
	return res, nil
}

type CityOutcome struct {
	Result RunResult
	Err    error
}

// RunCities runs at most limit cities at a time. A failed city is logged and
// reported in its outcome; the others keep going.
func (s *ProcessingService) RunCities(ctx context.Context, cities []config.CityConfig, limit int) []CityOutcome {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	outcomes := make([]CityOutcome, len(cities))
	for i, city := range cities {
		i, city := i, city
		g.Go(func() error {
			res, err := s.RunCity(ctx, city)
			res.City = city.Slug
			outcomes[i] = CityOutcome{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *ProcessingService) runCity(ctx context.Context, city config.CityConfig, runID string, logger *slog.Logger) (RunResult, error) {
	res := RunResult{RunID: runID, City: city.Slug}

	table, err := s.Overrides(ctx, city)
	if err != nil {
		return res, err
	}

	var archive *harvest.Archive
	if s.cfg.ArchiveDir != "" {
		archive = harvest.NewArchive(filepath.Join(s.cfg.ArchiveDir, city.Slug))
	}

	run := NewCityRun(city, table, logger)
	for _, src := range city.Pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := internal.PageRow{RunID: runID, Path: src.Path, URL: src.URL}
		snap, err := harvest.ReadSnapshot(city.PagePath(src), src.URL)
		row.SHA256, row.Format = snap.SHA256, snap.Format
		if err != nil {
			logger.Warn("skipping page", "path", src.Path, "error", err)
			res.Failed++
			row.Error = err.Error()
			if err := s.db.InsertPage(row); err != nil {
				return res, fmt.Errorf("record page: %w", err)
			}
			continue
		}

		page := snap.Page
		if rank := internal.ParseSourceRank(src.Rank); rank != 0 {
			page.SourceRank = rank
		}
		if page.SourceRank == 0 {
			page.SourceRank = DetectPageKind(page, run.Dialect()).Rank
		}
		if archive != nil {
			if row.Archived, err = archive.Keep(snap); err != nil {
				logger.Warn("archive page", "path", src.Path, "error", err)
			}
		}

		n, err := run.AddPage(page)
		if err != nil {
			return res, err
		}
		row.Rank, row.Candidates = page.SourceRank, n
		if err := s.db.InsertPage(row); err != nil {
			return res, fmt.Errorf("record page: %w", err)
		}
		res.Pages++
		res.Candidates += n
		logger.Debug("page processed", "path", src.Path, "sha256", snap.SHA256, "candidates", n)
	}

	res.Officials = run.Finalize()
	if err := s.db.SaveOfficials(runID, res.Officials); err != nil {
		return res, fmt.Errorf("save officials: %w", err)
	}

	if s.cfg.OutputDir != "" {
		res.ExportPath = filepath.Join(s.cfg.OutputDir, city.Slug+".xlsx")
		if err := ExportOfficialsToXLSX(res.Officials, res.ExportPath); err != nil {
			return res, fmt.Errorf("export officials: %w", err)
		}
	}
	return res, nil
}

// Overrides assembles a city's override table. Sources are layered from
// least to most authoritative: stored rows, the city YAML, the Google Sheet.
func (s *ProcessingService) Overrides(ctx context.Context, city config.CityConfig) (*overrides.Table, error) {
	table := overrides.NewTable()

	stored, err := s.db.ListOverrides(city.Slug)
	if err != nil {
		return nil, fmt.Errorf("load stored overrides: %w", err)
	}
	table.SetAll(stored)
	table.SetAll(overrides.FromConfig(city.Overrides, "yaml:"+city.Slug))

	if city.OverrideSheet != nil {
		if s.sheets == nil {
			s.logger.Warn("override sheet configured but sheets credentials missing", "city", city.Slug)
		} else {
			entries, err := s.sheets.Fetch(ctx, *city.OverrideSheet)
			if err != nil {
				s.logger.Warn("override sheet unavailable, using stored and yaml overrides", "city", city.Slug, "error", err)
			} else {
				table.SetAll(entries)
			}
		}
	}
	return table, nil
}

// ImportOverrides stores entries from an XLSX workbook for later runs.
func (s *ProcessingService) ImportOverrides(citySlug, xlsxPath string) (int, error) {
	entries, err := overrides.LoadXLSX(xlsxPath)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertOverrides(citySlug, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// SyncSheetOverrides copies a city's Google Sheet into the local store.
func (s *ProcessingService) SyncSheetOverrides(ctx context.Context, city config.CityConfig) (int, error) {
	if city.OverrideSheet == nil {
		return 0, fmt.Errorf("city %s has no override_sheet", city.Slug)
	}
	if s.sheets == nil {
		return 0, fmt.Errorf("sheets source not configured")
	}
	entries, err := s.sheets.Fetch(ctx, *city.OverrideSheet)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertOverrides(city.Slug, entries); err != nil {
		return 0, err
	}
	if err := s.db.SetMetadata("overrides_synced_at:"+city.Slug, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// LatestOfficials returns the officials of a city's newest successful run.
func (s *ProcessingService) LatestOfficials(citySlug string) (*internal.RunRow, []internal.Official, error) {
	run, err := s.db.LatestRun(citySlug)
	if err != nil || run == nil {
		return run, nil, err
	}
	officials, err := s.db.ListOfficials(run.ID)
	return run, officials, err
}

// RunPages lists the snapshots a run read, failed ones included.
func (s *ProcessingService) RunPages(runID string) ([]internal.PageRow, error) {
	return s.db.ListPages(runID)
}
