package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// ParseXLSX reads transactions from an Excel export. It scans the first
// sheet for a header row containing Date, Description and Amount
// columns (Category optional, case-insensitive) and parses the rows
// below it. Rows with an unparsable date or amount are skipped rather
// than failing the whole import.
func ParseXLSX(path string) ([]recurrence.Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}

	dateCol, descCol, amountCol, categoryCol := -1, -1, -1, -1
	dataStartRow := -1

	for i, row := range rows {
		for j, cell := range row {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "date":
				dateCol = j
			case "description", "text":
				descCol = j
			case "amount":
				amountCol = j
			case "category":
				categoryCol = j
			}
		}
		if dateCol >= 0 && descCol >= 0 && amountCol >= 0 {
			dataStartRow = i + 1
			break
		}
		dateCol, descCol, amountCol, categoryCol = -1, -1, -1, -1
	}

	if dataStartRow < 0 {
		return nil, fmt.Errorf("could not find required columns (Date, Description, Amount)")
	}

	var transactions []recurrence.Transaction
	for i := dataStartRow; i < len(rows); i++ {
		row := rows[i]

		maxCol := dateCol
		if descCol > maxCol {
			maxCol = descCol
		}
		if amountCol > maxCol {
			maxCol = amountCol
		}
		if len(row) <= maxCol {
			continue
		}

		dateStr := strings.TrimSpace(row[dateCol])
		desc := strings.TrimSpace(row[descCol])
		amountStr := strings.TrimSpace(row[amountCol])
		if dateStr == "" || amountStr == "" {
			continue
		}

		date, err := parseCellDate(dateStr)
		if err != nil {
			continue
		}

		amountStr = strings.ReplaceAll(amountStr, " ", "")
		amountStr = strings.ReplaceAll(amountStr, ",", ".")
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			continue
		}

		category := ""
		if categoryCol >= 0 && len(row) > categoryCol {
			category = strings.TrimSpace(row[categoryCol])
		}

		transactions = append(transactions, recurrence.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Amount:      amount,
			Description: desc,
			Category:    category,
		})
	}

	return transactions, nil
}

func parseCellDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "01-02-06", "2006/01/02", "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
