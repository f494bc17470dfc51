// Package export renders transaction listings as CSV or XLSX spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rongwang/expense-tracker-server/internal/models"
	"github.com/xuri/excelize/v2"
)

// Format of an export
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat defaults to CSV
func ParseFormat(v string) (Format, error) {
	switch Format(v) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", models.NewValidationError("format", fmt.Sprintf("unsupported export format %q", v))
}

// ContentType is the MIME type of the format
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

const sheetName = "Transactions"

var headers = []string{"Date", "Type", "Wallet", "Category", "Amount", "Balance Before", "Balance After", "Note"}

func row(tx models.TransactionDetail) []string {
	return []string{
		tx.TransactionDate.Format("2006-01-02 15:04:05"),
		string(tx.Type),
		text(tx.WalletName),
		text(tx.CategoryName),
		tx.Amount.StringFixed(2),
		tx.BalanceBefore.StringFixed(2),
		tx.BalanceAfter.StringFixed(2),
		text(tx.Note),
	}
}

// text renders a user-supplied cell. A leading character that spreadsheet
// apps read as the start of a formula is escaped with a quote.
func text(s *string) string {
	if s == nil || *s == "" {
		return ""
	}
	if strings.ContainsRune("=+-@\t\r", rune((*s)[0])) {
		return "'" + *s
	}
	return *s
}

// Write renders transactions to w in format f
func Write(w io.Writer, f Format, transactions []models.TransactionDetail) error {
	if f == XLSX {
		return WriteXLSX(w, transactions)
	}
	return WriteCSV(w, transactions)
}

// WriteCSV writes a UTF-8 CSV with a BOM so spreadsheet apps detect the encoding
func WriteCSV(w io.Writer, transactions []models.TransactionDetail) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return err
	}
	for _, tx := range transactions {
		if err := writer.Write(row(tx)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes a single-sheet workbook. Money columns are numeric cells.
func WriteXLSX(w io.Writer, transactions []models.TransactionDetail) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return err
	}

	for idx, tx := range transactions {
		values := []interface{}{
			tx.TransactionDate.Format("2006-01-02 15:04:05"),
			string(tx.Type),
			text(tx.WalletName),
			text(tx.CategoryName),
			tx.Amount.InexactFloat64(),
			tx.BalanceBefore.InexactFloat64(),
			tx.BalanceAfter.InexactFloat64(),
			text(tx.Note),
		}
		cell, _ := excelize.CoordinatesToCellName(1, idx+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "D", 16)
	f.SetColWidth(sheetName, "E", "G", 14)
	f.SetColWidth(sheetName, "H", "H", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
