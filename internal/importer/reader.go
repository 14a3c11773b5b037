package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadFile читает строки из .xlsx/.xlsm (первый лист, если sheet не задан) или .csv
func ReadFile(path, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		return ReadWorkbook(f, sheet)
	case ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return ReadCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path))
	}
}

// ReadWorkbook возвращает сырые значения ячеек: даты приходят серийными номерами Excel,
// а не строками в формате локали.
func ReadWorkbook(f *excelize.File, sheet string) ([][]string, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
