package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	drawsSheet       = "draws"
	predictionsSheet = "predictions"
	defaultSheet     = "Sheet1" // the sheet excelize.NewFile starts with
)

// sheetOrder fixes the sheet layout of a rewritten workbook.
var sheetOrder = []string{drawsSheet, predictionsSheet}

// workbook reads and fully rewrites named sheets. A missing file or sheet
// reads as no rows with a nil error.
type workbook interface {
	ReadSheet(name string) ([][]string, error)
	WriteSheet(name string, rows [][]string) error
	Files() []string
}

func newWorkbook(path string) workbook {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return &csvBook{path: path}
	}
	return &xlsxBook{path: path}
}

// xlsxBook keeps every sheet in one .xlsx file. Draws live on the "draws"
// sheet; a workbook without one is read from the first sheet whose header names
// draw columns, which is how older workbooks (a single Sheet1) are laid out.
type xlsxBook struct {
	path string
}

func (b *xlsxBook) Files() []string {
	return []string{b.path}
}

func (b *xlsxBook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return f, nil
}

func (b *xlsxBook) ReadSheet(name string) ([][]string, error) {
	f, err := b.open()
	if err != nil || f == nil {
		return nil, err
	}
	defer f.Close()

	if name == drawsSheet {
		name = drawsSource(f)
		if name == "" {
			return nil, nil
		}
	}
	return readRows(f, name)
}

func readRows(f *excelize.File, name string) ([][]string, error) {
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	return rows, nil
}

// drawsSource names the sheet draws are read from, or "" when there is none.
func drawsSource(f *excelize.File) string {
	if idx, err := f.GetSheetIndex(drawsSheet); err == nil && idx >= 0 {
		return drawsSheet
	}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err == nil && len(rows) > 0 && isDrawsHeader(rows[0]) {
			return name
		}
	}
	return ""
}

type sheet struct {
	name string
	rows [][]string
}

// WriteSheet rewrites the whole workbook with name replaced by rows. Every
// other sheet is carried over unchanged, except that writing the draws sheet
// replaces the legacy sheet it was read from.
func (b *xlsxBook) WriteSheet(name string, rows [][]string) error {
	sheets, err := b.layout(name, rows)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if sh.name != defaultSheet {
				if err := f.SetSheetName(defaultSheet, sh.name); err != nil {
					return fmt.Errorf("failed to name sheet %s: %w", sh.name, err)
				}
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sh.name, err)
		}

		for r, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(sh.name, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d of %s: %w", r+1, sh.name, err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create workbook directory: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(b.path), "."+strings.TrimSuffix(filepath.Base(b.path), filepath.Ext(b.path))+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace workbook: %w", err)
	}
	return nil
}

// layout orders the sheets of the rewritten workbook: the known sheets that
// exist or are being written, then every other existing sheet in file order.
func (b *xlsxBook) layout(name string, rows [][]string) ([]sheet, error) {
	existing := map[string][][]string{}
	var order []string
	replaced := ""

	f, err := b.open()
	if err != nil {
		return nil, err
	}
	if f != nil {
		if name == drawsSheet {
			replaced = drawsSource(f)
		}
		for _, sh := range f.GetSheetList() {
			r, err := f.GetRows(sh)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to read sheet %s: %w", sh, err)
			}
			existing[sh] = r
			order = append(order, sh)
		}
		f.Close()
	}

	sheets := make([]sheet, 0, len(order)+1)
	placed := map[string]bool{}
	for _, known := range sheetOrder {
		if known == name {
			sheets = append(sheets, sheet{name: name, rows: rows})
			placed[name] = true
			continue
		}
		if r, ok := existing[known]; ok {
			sheets = append(sheets, sheet{name: known, rows: r})
			placed[known] = true
		}
	}
	for _, sh := range order {
		if placed[sh] || sh == replaced {
			continue
		}
		sheets = append(sheets, sheet{name: sh, rows: existing[sh]})
	}
	return sheets, nil
}

// csvBook stores the draws sheet at path and every other sheet in a sibling
// file named <base>_<sheet>.csv.
type csvBook struct {
	path string
}

func (b *csvBook) sheetPath(name string) string {
	if name == drawsSheet {
		return b.path
	}
	return strings.TrimSuffix(b.path, filepath.Ext(b.path)) + "_" + name + ".csv"
}

func (b *csvBook) Files() []string {
	files := make([]string, 0, len(sheetOrder))
	for _, s := range sheetOrder {
		files = append(files, b.sheetPath(s))
	}
	return files
}

func (b *csvBook) ReadSheet(name string) ([][]string, error) {
	f, err := os.Open(b.sheetPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return rows, nil
}

func (b *csvBook) WriteSheet(name string, rows [][]string) error {
	path := b.sheetPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
