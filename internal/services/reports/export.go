package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const lowStockSheet = "Low stock"

var lowStockHeader = []string{"name", "stock_quantity", "reorder_level", "deficit"}

// WriteLowStockCSV writes rows as UTF-8 CSV prefixed with a BOM so
// spreadsheet tools pick the right encoding. No rows still yields the
// header line.
func WriteLowStockCSV(w io.Writer, rows []LowStockRow) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(lowStockHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			r.Name,
			strconv.Itoa(r.StockQuantity),
			strconv.Itoa(r.ReorderLevel),
			strconv.Itoa(r.Deficit),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteLowStockXLSX renders the same columns as a single-sheet workbook.
func WriteLowStockXLSX(w io.Writer, rows []LowStockRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), lowStockSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range lowStockHeader {
		f.SetCellValue(lowStockSheet, fmt.Sprintf("%c1", 'A'+i), h)
	}
	for idx, r := range rows {
		row := idx + 2
		f.SetCellValue(lowStockSheet, fmt.Sprintf("A%d", row), r.Name)
		f.SetCellValue(lowStockSheet, fmt.Sprintf("B%d", row), r.StockQuantity)
		f.SetCellValue(lowStockSheet, fmt.Sprintf("C%d", row), r.ReorderLevel)
		f.SetCellValue(lowStockSheet, fmt.Sprintf("D%d", row), r.Deficit)
	}

	f.SetColWidth(lowStockSheet, "A", "A", 32)
	f.SetColWidth(lowStockSheet, "B", "D", 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
