package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveInsights_ProfitableGrowth(t *testing.T) {
	rows := Ledger{
		{Date: "2024-01", Revenue: 1000, Expenses: 1200},
		{Date: "2024-02", Revenue: 1500, Expenses: 1100},
	}

	report := DeriveInsights(rows)

	assert.Equal(t, 400.0, report.BurnRate)
	require.True(t, report.RevenueGrowthPct.Defined)
	assert.InDelta(t, 50.0, report.RevenueGrowthPct.Pct, 1e-9)
	assert.True(t, report.Profitable)
	assert.Equal(t, Runway{Status: RunwayMonths, Months: 2}, report.RunwayMonths)
	assert.Equal(t, []string{
		"Revenue is higher than expenses. Keep it up!",
		"Revenue grew by 50.0% last month.",
		"Estimated cash runway: 2.0 months",
		"Monthly burn rate: $400.00",
	}, report.Messages)
}

func TestDeriveInsights_ExpenseWarningAndInsolvency(t *testing.T) {
	rows := Ledger{
		{Date: "2024-01", Revenue: 100, Expenses: 100},
		{Date: "2024-02", Revenue: 100, Expenses: 120},
	}

	report := DeriveInsights(rows)

	assert.Equal(t, -20.0, report.BurnRate)
	assert.False(t, report.Profitable)
	assert.Equal(t, RunwayInsolvent, report.RunwayMonths.Status)
	assert.Equal(t, []string{
		"You're spending more than you earn. Consider reducing costs.",
		"Revenue dropped by 0.0% from last month.",
		"Expenses jumped by 20.0%, review spending.",
		"Estimated cash runway: out of cash soon",
		"Monthly burn rate: $20.00",
	}, report.Messages)
}

func TestDeriveInsights_ModestExpenseGrowthHasNoWarning(t *testing.T) {
	rows := Ledger{
		{Date: "a", Revenue: 500, Expenses: 100},
		{Date: "b", Revenue: 500, Expenses: 110},
	}

	report := DeriveInsights(rows)

	assert.Len(t, report.Messages, 4)
	assert.NotContains(t, report.Messages[2], "Expenses jumped")
}

func TestDeriveInsights_UsesPositionalOrder(t *testing.T) {
	// Dates out of order on purpose; the final two rows by position win.
	rows := Ledger{
		{Date: "2024-03", Revenue: 300, Expenses: 100},
		{Date: "2024-01", Revenue: 100, Expenses: 100},
		{Date: "2024-02", Revenue: 200, Expenses: 100},
	}

	report := DeriveInsights(rows)

	assert.InDelta(t, 100.0, report.RevenueGrowthPct.Pct, 1e-9)
	assert.Equal(t, 100.0, report.BurnRate)
}

func TestDeriveInsights_UndefinedGrowthWhenPreviousRevenueIsZero(t *testing.T) {
	rows := Ledger{
		{Date: "2024-01", Revenue: 0, Expenses: 50},
		{Date: "2024-02", Revenue: 100, Expenses: 50},
	}

	report := DeriveInsights(rows)

	assert.False(t, report.RevenueGrowthPct.Defined)
	assert.Equal(t, "n/a", report.RevenueGrowthPct.String())
	assert.Equal(t, "Revenue growth is undefined: the previous period had no revenue.", report.Messages[1])

	encoded, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"revenue_growth_pct":null`)
	assert.NotContains(t, string(encoded), "NaN")
	assert.NotContains(t, string(encoded), "Inf")
}

func TestDeriveInsights_UndefinedExpenseGrowthSkipsWarning(t *testing.T) {
	rows := Ledger{
		{Date: "2024-01", Revenue: 10, Expenses: 0},
		{Date: "2024-02", Revenue: 10, Expenses: 500},
	}

	report := DeriveInsights(rows)

	assert.False(t, report.ExpenseGrowthPct.Defined)
	for _, msg := range report.Messages {
		assert.NotContains(t, msg, "Expenses jumped")
	}
}

func TestDeriveInsights_NotEnoughData(t *testing.T) {
	for _, rows := range []Ledger{nil, {}, {{Date: "2024-01", Revenue: 10, Expenses: 5}}} {
		report := DeriveInsights(rows)

		assert.Equal(t, []string{MsgNotEnoughData}, report.Messages)
		assert.Zero(t, report.BurnRate)
		assert.False(t, report.Profitable)
		assert.False(t, report.RevenueGrowthPct.Defined)
		assert.False(t, report.ExpenseGrowthPct.Defined)
		assert.Equal(t, RunwayUndefined, report.RunwayMonths.Status)
		assert.Zero(t, report.RunwayMonths.Months)
	}
}

func TestDeriveInsights_Deterministic(t *testing.T) {
	rows := Ledger{
		{Date: "2024-01", Revenue: 1234.56, Expenses: 999.99},
		{Date: "2024-02", Revenue: 1100.10, Expenses: 1500.25},
		{Date: "2024-03", Revenue: 1900.75, Expenses: 1200.5},
	}

	first, err := json.Marshal(DeriveInsights(rows))
	require.NoError(t, err)
	second, err := json.Marshal(DeriveInsights(rows.Clone()))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestInsightReport_Summary(t *testing.T) {
	report := DeriveInsights(Ledger{
		{Date: "2024-01", Revenue: 1000, Expenses: 1200},
		{Date: "2024-02", Revenue: 2500, Expenses: 1100},
	})

	assert.Equal(t, Summary{
		BurnRate:      "$1,400.00",
		Runway:        "2.0 months",
		RevenueGrowth: "150.0%",
		Profitability: "Positive",
	}, report.Summary())

	empty := DeriveInsights(nil).Summary()
	assert.Equal(t, "n/a", empty.Profitability)
	assert.Equal(t, "n/a", empty.Runway)
	assert.Equal(t, "$0.00", empty.BurnRate)
}

func TestInsightReport_JSONRoundTrip(t *testing.T) {
	rows := Ledger{
		{Date: "2024-01", Revenue: 0, Expenses: 100},
		{Date: "2024-02", Revenue: 500, Expenses: 100},
	}
	report := DeriveInsights(rows)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded InsightReport
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, report, decoded)
	assert.False(t, decoded.RevenueGrowthPct.Defined)
	assert.True(t, decoded.ExpenseGrowthPct.Defined)
}
