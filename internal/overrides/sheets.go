package overrides

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"civicroster/internal"
	"civicroster/internal/config"
)

const defaultSheetRange = "A:D"

// SheetSource reads override rows that a city clerk maintains in a Google Sheet.
type SheetSource struct {
	service *sheets.Service
}

func NewSheetSource(ctx context.Context, cfg config.Config) (*SheetSource, error) {
	if err := cfg.Require("SHEETS_CLIENT_ID", cfg.SheetsClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_CLIENT_SECRET", cfg.SheetsClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("SHEETS_REFRESH_TOKEN", cfg.SheetsRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.SheetsClientID,
		ClientSecret: cfg.SheetsClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.SheetsRedirectURI,
		Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.SheetsRefreshToken})
	svc, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return &SheetSource{service: svc}, nil
}

func (s *SheetSource) Fetch(ctx context.Context, sheet config.OverrideSheet) ([]internal.OverrideEntry, error) {
	if sheet.SpreadsheetID == "" {
		return nil, fmt.Errorf("override sheet has no spreadsheet_id")
	}
	rng := sheet.Range
	if rng == "" {
		rng = defaultSheetRange
	}

	resp, err := s.service.Spreadsheets.Values.Get(sheet.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet.SpreadsheetID, err)
	}
	return ParseRows(StringRows(resp.Values), "sheet:"+sheet.SpreadsheetID)
}

// StringRows flattens the loosely typed cell values the Sheets API returns.
func StringRows(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		out = append(out, cells)
	}
	return out
}
