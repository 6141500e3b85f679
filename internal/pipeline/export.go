package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"civicroster/internal"
	"civicroster/internal/util"
)

func ExportOfficialsToXLSX(officials []internal.Official, outputPath string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	headers := []string{
		"city", "name", "role", "district", "email", "email_confidence",
		"phone", "photo_url", "bio", "term_start", "term_end", "overridden", "sources",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, o := range officials {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, o.City)
		set(2, o.Name)
		set(3, o.Role.Label())
		set(4, util.DerefString(o.District))
		set(5, util.DerefString(o.Email))
		set(6, confidenceLabel(o.EmailConfidence))
		set(7, util.DerefString(o.Phone))
		set(8, util.DerefString(o.PhotoURL))
		set(9, util.DerefString(o.Bio))
		set(10, util.DerefInt(o.TermStart))
		set(11, util.DerefInt(o.TermEnd))
		set(12, o.Overridden)
		set(13, strings.Join(o.Sources, "\n"))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func confidenceLabel(c internal.Confidence) string {
	switch c {
	case internal.ConfidenceHigh:
		return "high"
	case internal.ConfidenceLow:
		return "low"
	default:
		return ""
	}
}
