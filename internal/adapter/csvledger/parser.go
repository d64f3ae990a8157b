// Package csvledger reads and writes ledgers in their uploaded CSV form.
package csvledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iho/kpidash/internal/domain"
)

const utf8BOM = "\ufeff"

// Parser implements usecase.LedgerParser.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a header-first CSV ledger.
func (p *Parser) Parse(r io.Reader) (*domain.ParseResult, error) {
	return Parse(r)
}

// Parse reads a header-first CSV ledger. Data problems are returned as
// *domain.ParseError; tokenizer problems become warnings unless nothing
// could be read at all.
func Parse(r io.Reader) (*domain.ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	result := &domain.ParseResult{Rows: domain.Ledger{}}

	header, err := readHeader(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		return nil, err
	}
	result.Columns = header

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}

	var tokenizerErrs int
	rowIndex := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if !errors.As(err, &csvErr) {
				return nil, fmt.Errorf("failed to read csv: %w", err)
			}
			tokenizerErrs++
			result.Warnings = append(result.Warnings, csvErr.Error())
			continue
		}

		if isBlank(record) {
			continue
		}

		rowIndex++
		if len(record) != len(header) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: expected %d fields, got %d", rowIndex, len(header), len(record)))
		}

		row, err := parseRow(record, header, columns, rowIndex)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}

	if tokenizerErrs > 0 && rowIndex == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnreadableCSV, result.Warnings[0])
	}

	return result, nil
}

func readHeader(reader *csv.Reader) ([]string, error) {
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: header: %v", domain.ErrUnreadableCSV, err)
		}
		if isBlank(record) {
			continue
		}

		header := make([]string, len(record))
		for i, name := range record {
			if i == 0 {
				name = strings.TrimPrefix(name, utf8BOM)
			}
			header[i] = strings.TrimSpace(name)
		}
		return header, nil
	}
}

func parseRow(record, header []string, columns map[string]int, rowIndex int) (domain.LedgerRow, error) {
	date, hasDate := field(record, columns, domain.ColumnDate)
	rawRevenue, hasRevenue := field(record, columns, domain.ColumnRevenue)
	rawExpenses, hasExpenses := field(record, columns, domain.ColumnExpenses)

	date = strings.TrimSpace(date)

	switch {
	case !hasDate || date == "":
		return domain.LedgerRow{}, missing(rowIndex, domain.ColumnDate)
	case !hasRevenue:
		return domain.LedgerRow{}, missing(rowIndex, domain.ColumnRevenue)
	case !hasExpenses:
		return domain.LedgerRow{}, missing(rowIndex, domain.ColumnExpenses)
	}

	revenue, ok := parseAmount(rawRevenue)
	if !ok {
		return domain.LedgerRow{}, invalid(rowIndex, domain.ColumnRevenue, rawRevenue)
	}

	expenses, ok := parseAmount(rawExpenses)
	if !ok {
		return domain.LedgerRow{}, invalid(rowIndex, domain.ColumnExpenses, rawExpenses)
	}

	row := domain.LedgerRow{
		Date:     date,
		Revenue:  revenue,
		Expenses: expenses,
	}

	for i, name := range header {
		if i >= len(record) || isRequired(name) || name == "" {
			continue
		}
		if row.Extra == nil {
			row.Extra = make(map[string]string)
		}
		if _, dup := row.Extra[name]; !dup {
			row.Extra[name] = record[i]
		}
	}

	return row, nil
}

func field(record []string, columns map[string]int, name string) (string, bool) {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	return record[idx], true
}

func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isRequired(name string) bool {
	return name == domain.ColumnDate || name == domain.ColumnRevenue || name == domain.ColumnExpenses
}

func missing(rowIndex int, field string) error {
	return &domain.ParseError{Kind: domain.ParseErrMissingField, RowIndex: rowIndex, Field: field}
}

func invalid(rowIndex int, field, raw string) error {
	return &domain.ParseError{Kind: domain.ParseErrInvalidNumber, RowIndex: rowIndex, Field: field, RawValue: raw}
}
