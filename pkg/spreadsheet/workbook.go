// Package spreadsheet renders tabular data into an xlsx workbook.
package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ContentType is the media type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MaxSheetNameLength is the longest sheet name Excel accepts.
const MaxSheetNameLength = 31

const defaultSheet = "Sheet1"

// Column describes one header cell and its display width.
type Column struct {
	Header string
	Width  float64
}

// Sheet is one worksheet: a header row followed by Rows.
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Render writes every sheet into a new workbook and returns the xlsx bytes.
// Sheet names are sanitized, truncated and de-duplicated.
func Render(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("at least one sheet is required")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	names := newNameSet()
	for i, sheet := range sheets {
		name := names.claim(sheet.Name)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename default sheet to %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, sheet); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet) error {
	header := make([]any, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = col.Header
		if col.Width > 0 {
			letter, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return err
			}
			if err := f.SetColWidth(name, letter, letter, col.Width); err != nil {
				return fmt.Errorf("set width of %s!%s: %w", name, letter, err)
			}
		}
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+1, name, err)
		}
	}
	return nil
}

// nameSet hands out unique sheet names. Excel compares names case-insensitively.
type nameSet struct {
	seen map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{seen: map[string]struct{}{}}
}

func (n *nameSet) has(name string) bool {
	_, ok := n.seen[strings.ToLower(name)]
	return ok
}

func (n *nameSet) claim(raw string) string {
	base := SheetName(raw)
	name := base
	for i := 2; n.has(name); i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		name = truncateRunes(base, MaxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
	}
	n.seen[strings.ToLower(name)] = struct{}{}
	return name
}

// SheetName strips characters Excel rejects and truncates to
// MaxSheetNameLength runes. An empty result becomes "Sheet".
func SheetName(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, raw)
	cleaned = strings.Trim(strings.TrimSpace(cleaned), "'")
	cleaned = strings.TrimSpace(truncateRunes(cleaned, MaxSheetNameLength))
	if cleaned == "" {
		return "Sheet"
	}
	return cleaned
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
