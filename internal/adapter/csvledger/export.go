package csvledger

import (
	"bytes"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/iho/kpidash/internal/domain"
)

// Field is one key/value cell of a flat record.
type Field struct {
	Key   string
	Value string
}

// Record is an ordered flat record; key order becomes column order.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// ExportCSV joins records with commas without any escaping. Headers are the
// keys of the first record. Values containing commas, quotes or newlines
// produce broken output; use ExportCSVQuoted for those.
func ExportCSV(records []Record) string {
	if len(records) == 0 {
		return ""
	}

	header := headerOf(records)
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(header, ","))

	for _, rec := range records {
		lines = append(lines, strings.Join(valuesFor(rec, header), ","))
	}

	return strings.Join(lines, "\n")
}

// ExportCSVQuoted writes records as CSV, quoting fields that contain
// delimiters, quotes or newlines and doubling embedded quotes.
func ExportCSVQuoted(w io.Writer, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	header := headerOf(records)
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.Write(valuesFor(rec, header)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LedgerRecords flattens rows into records: Date, Revenue, Expenses, then
// extra columns in name order.
func LedgerRecords(rows domain.Ledger) []Record {
	extraKeys := map[string]struct{}{}
	for _, row := range rows {
		for k := range row.Extra {
			extraKeys[k] = struct{}{}
		}
	}

	extras := make([]string, 0, len(extraKeys))
	for k := range extraKeys {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, 0, 3+len(extras))
		rec = append(rec,
			Field{Key: domain.ColumnDate, Value: row.Date},
			Field{Key: domain.ColumnRevenue, Value: FormatAmount(row.Revenue)},
			Field{Key: domain.ColumnExpenses, Value: FormatAmount(row.Expenses)},
		)
		for _, k := range extras {
			rec = append(rec, Field{Key: k, Value: row.Extra[k]})
		}
		records = append(records, rec)
	}

	return records
}

// WriteLedger writes rows in the same tabular form they are parsed from.
// An empty ledger still produces the header line.
func WriteLedger(w io.Writer, rows domain.Ledger) error {
	if len(rows) == 0 {
		_, err := io.WriteString(w, strings.Join(requiredColumns(), ",")+"\n")
		return err
	}
	return ExportCSVQuoted(w, LedgerRecords(rows))
}

// MarshalLedger is WriteLedger into a byte slice.
func MarshalLedger(rows domain.Ledger) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteLedger(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatAmount renders a float with the fewest digits that parse back to
// the same value.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func headerOf(records []Record) []string {
	header := make([]string, len(records[0]))
	for i, f := range records[0] {
		header[i] = f.Key
	}
	return header
}

func valuesFor(rec Record, header []string) []string {
	values := make([]string, len(header))
	for i, key := range header {
		values[i], _ = rec.Get(key)
	}
	return values
}

func requiredColumns() []string {
	return []string{domain.ColumnDate, domain.ColumnRevenue, domain.ColumnExpenses}
}
