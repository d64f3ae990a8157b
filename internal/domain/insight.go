package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Insight thresholds and fixed messages.
const (
	ExpenseGrowthWarningPct = 15.0
	MsgNotEnoughData        = "not enough data for insights"
	displayCurrency         = money.USD
)

// Growth is a period-over-period percentage that may be undefined when the
// previous period was zero.
type Growth struct {
	Pct     float64
	Defined bool
}

// UndefinedGrowth is returned when the base period is zero.
var UndefinedGrowth = Growth{}

func growthBetween(prev, last float64) Growth {
	if prev == 0 {
		return UndefinedGrowth
	}

	pct := (last - prev) / prev * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return UndefinedGrowth
	}

	return Growth{Pct: pct, Defined: true}
}

// String renders the growth with one decimal, or "n/a".
func (g Growth) String() string {
	if !g.Defined {
		return "n/a"
	}
	return oneDecimal(g.Pct) + "%"
}

// MarshalJSON encodes undefined growth as null.
func (g Growth) MarshalJSON() ([]byte, error) {
	if !g.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(g.Pct)
}

// UnmarshalJSON reads a number, or null as undefined growth.
func (g *Growth) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = UndefinedGrowth
		return nil
	}

	var pct float64
	if err := json.Unmarshal(data, &pct); err != nil {
		return err
	}
	*g = Growth{Pct: pct, Defined: true}
	return nil
}

// RunwayStatus classifies the runway figure.
type RunwayStatus string

const (
	// RunwayUndefined means there was not enough data to compute a runway.
	RunwayUndefined RunwayStatus = "undefined"
	// RunwayInsolvent means the average net change is not positive.
	RunwayInsolvent RunwayStatus = "insolvent"
	// RunwayMonths means Months holds a positive estimate.
	RunwayMonths RunwayStatus = "months"
)

// Runway is the estimated number of months of operation left.
type Runway struct {
	Status RunwayStatus `json:"status"`
	Months float64      `json:"months"`
}

// String renders the runway for display.
func (r Runway) String() string {
	switch r.Status {
	case RunwayMonths:
		return oneDecimal(r.Months) + " months"
	case RunwayInsolvent:
		return "out of cash soon"
	default:
		return "n/a"
	}
}

// InsightReport is derived from a ledger on demand and never stored.
type InsightReport struct {
	RowCount         int      `json:"row_count"`
	BurnRate         float64  `json:"burn_rate"`
	RunwayMonths     Runway   `json:"runway"`
	RevenueGrowthPct Growth   `json:"revenue_growth_pct"`
	ExpenseGrowthPct Growth   `json:"expense_growth_pct"`
	Profitable       bool     `json:"profitable"`
	Messages         []string `json:"messages"`
}

// Sufficient reports whether the ledger had enough rows for real figures.
func (r InsightReport) Sufficient() bool {
	return r.RowCount >= 2
}

// DeriveInsights computes the KPI report for a ledger. It is pure: the same
// ledger always produces the same report.
func DeriveInsights(rows Ledger) InsightReport {
	if len(rows) < 2 {
		return InsightReport{
			RowCount:         len(rows),
			RunwayMonths:     Runway{Status: RunwayUndefined},
			RevenueGrowthPct: UndefinedGrowth,
			ExpenseGrowthPct: UndefinedGrowth,
			Messages:         []string{MsgNotEnoughData},
		}
	}

	last := rows[len(rows)-1]
	prev := rows[len(rows)-2]

	revenueGrowth := growthBetween(prev.Revenue, last.Revenue)
	expenseGrowth := growthBetween(prev.Expenses, last.Expenses)
	burnRate := last.Net()

	var totalNet float64
	for _, row := range rows {
		totalNet += row.Net()
	}
	avgBurn := totalNet / float64(len(rows))

	// totalNet / avgBurn always equals the row count. Kept as is until the
	// runway definition is revisited at product level.
	runway := Runway{Status: RunwayInsolvent}
	if avgBurn > 0 {
		runway = Runway{Status: RunwayMonths, Months: roundOne(totalNet / avgBurn)}
	}

	report := InsightReport{
		RowCount:         len(rows),
		BurnRate:         burnRate,
		RunwayMonths:     runway,
		RevenueGrowthPct: revenueGrowth,
		ExpenseGrowthPct: expenseGrowth,
		Profitable:       burnRate >= 0,
	}

	messages := make([]string, 0, 5)
	if report.Profitable {
		messages = append(messages, "Revenue is higher than expenses. Keep it up!")
	} else {
		messages = append(messages, "You're spending more than you earn. Consider reducing costs.")
	}

	switch {
	case !revenueGrowth.Defined:
		messages = append(messages, "Revenue growth is undefined: the previous period had no revenue.")
	case revenueGrowth.Pct > 0:
		messages = append(messages, fmt.Sprintf("Revenue grew by %s%% last month.", oneDecimal(revenueGrowth.Pct)))
	default:
		messages = append(messages, fmt.Sprintf("Revenue dropped by %s%% from last month.", oneDecimal(math.Abs(revenueGrowth.Pct))))
	}

	if expenseGrowth.Defined && expenseGrowth.Pct > ExpenseGrowthWarningPct {
		messages = append(messages, fmt.Sprintf("Expenses jumped by %s%%, review spending.", oneDecimal(expenseGrowth.Pct)))
	}

	messages = append(messages, "Estimated cash runway: "+runway.String())
	messages = append(messages, "Monthly burn rate: "+formatAmount(math.Abs(burnRate)))

	report.Messages = messages

	return report
}

// Summary holds the four dashboard card values.
type Summary struct {
	BurnRate      string `json:"burn_rate"`
	Runway        string `json:"runway"`
	RevenueGrowth string `json:"revenue_growth"`
	Profitability string `json:"profitability"`
}

// Summary renders the report's headline figures.
func (r InsightReport) Summary() Summary {
	s := Summary{
		BurnRate:      formatAmount(math.Abs(r.BurnRate)),
		Runway:        r.RunwayMonths.String(),
		RevenueGrowth: r.RevenueGrowthPct.String(),
		Profitability: "n/a",
	}

	if r.Sufficient() {
		if r.Profitable {
			s.Profitability = "Positive"
		} else {
			s.Profitability = "Negative"
		}
	}

	return s
}

func roundOne(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

func oneDecimal(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

func formatAmount(v float64) string {
	cents := decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
	return money.New(cents, displayCurrency).Display()
}
