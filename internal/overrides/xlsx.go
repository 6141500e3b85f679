package overrides

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"civicroster/internal"
)

// LoadXLSX reads override rows from the first sheet of a workbook.
func LoadXLSX(path string) ([]internal.OverrideEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return ParseRows(rows, "xlsx:"+filepath.Base(path))
}
