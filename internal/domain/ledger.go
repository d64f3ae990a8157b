package domain

// Required ledger columns. Header names are matched case-sensitively.
const (
	ColumnDate     = "Date"
	ColumnRevenue  = "Revenue"
	ColumnExpenses = "Expenses"
)

// LedgerRow is a single period of an uploaded ledger.
type LedgerRow struct {
	// Date is the trimmed original cell; its format belongs to the uploader.
	Date     string
	Revenue  float64
	Expenses float64
	// Extra holds additional columns, kept for display only.
	Extra map[string]string
}

// Net returns revenue minus expenses for the period.
func (r LedgerRow) Net() float64 {
	return r.Revenue - r.Expenses
}

// Ledger is an ordered series of rows. Position is meaningful and rows are
// never re-sorted by date.
type Ledger []LedgerRow

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}

	out := make(Ledger, len(l))
	for i, row := range l {
		out[i] = row
		if row.Extra != nil {
			extra := make(map[string]string, len(row.Extra))
			for k, v := range row.Extra {
				extra[k] = v
			}
			out[i].Extra = extra
		}
	}

	return out
}

// ParseResult is the outcome of a successful CSV parse.
type ParseResult struct {
	Rows Ledger
	// Columns is the header row in file order.
	Columns []string
	// Warnings carries tokenizer problems that did not stop the parse.
	Warnings []string
}

// ForecastPoint is one predicted period returned by the forecast service.
type ForecastPoint struct {
	Date              string
	ForecastedRevenue float64
}

// CloneForecast returns a copy of the forecast series.
func CloneForecast(points []ForecastPoint) []ForecastPoint {
	if points == nil {
		return nil
	}

	out := make([]ForecastPoint, len(points))
	copy(out, points)

	return out
}
