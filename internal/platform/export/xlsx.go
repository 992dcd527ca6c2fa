package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the files Write produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is the longest sheet name spreadsheet applications accept.
const maxSheetName = 31

// HeaderFill is the background of the header row.
const HeaderFill = "#FECC16"

// Options controls the layout of a written sheet.
type Options struct {
	// Columns fixes the leading column order; fields not listed follow in
	// alphabetical order.
	Columns []string
}

// FileName is the download name for a sheet.
func FileName(sheet string) string {
	return SheetName(sheet) + ".xlsx"
}

// SheetName strips the characters spreadsheet applications reject in sheet
// names and truncates to their length limit.
func SheetName(sheet string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(sheet))
	if name == "" {
		name = "dados"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// Columns returns the header of rows: opts.Columns first (when present in
// any row), then the remaining field names sorted.
func Columns(rows []Row, opts Options) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}

	cols := make([]string, 0, len(seen))
	for _, c := range opts.Columns {
		if seen[c] {
			cols = append(cols, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

// Write serialises rows as a single-sheet workbook to w. The header row is
// bold on a coloured background.
func Write(w io.Writer, sheet string, rows []Row, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	name := SheetName(sheet)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{HeaderFill}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	cols := Columns(rows, opts)
	for i, c := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, c); err != nil {
			return fmt.Errorf("write header %q: %w", c, err)
		}
	}
	if len(cols) > 0 {
		last, err := excelize.CoordinatesToCellName(len(cols), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, style); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	for ri, r := range rows {
		for ci, c := range cols {
			v, ok := r[c]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, cellValue(v)); err != nil {
				return fmt.Errorf("write row %d: %w", ri, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// cellValue flattens nested JSON values to their JSON text.
func cellValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return v
	}
}
