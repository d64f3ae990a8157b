package csvledger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/kpidash/internal/domain"
)

func TestExportCSV_HeadersFromFirstRecord(t *testing.T) {
	records := []Record{
		{{Key: "Date", Value: "2024-01"}, {Key: "Revenue", Value: "10"}},
		{{Key: "Revenue", Value: "20"}, {Key: "Date", Value: "2024-02"}, {Key: "Ignored", Value: "x"}},
	}

	assert.Equal(t, "Date,Revenue\n2024-01,10\n2024-02,20", ExportCSV(records))
}

func TestExportCSV_DoesNotEscape(t *testing.T) {
	records := []Record{{{Key: "Notes", Value: `a,"b"`}}}

	assert.Equal(t, "Notes\na,\"b\"", ExportCSV(records))
}

func TestExportCSV_Empty(t *testing.T) {
	assert.Equal(t, "", ExportCSV(nil))
}

func TestExportCSVQuoted_EscapesSpecialCharacters(t *testing.T) {
	records := []Record{
		{{Key: "Date", Value: "2024-01"}, {Key: "Notes", Value: `said "hi", left`}},
		{{Key: "Date", Value: "2024-02"}, {Key: "Notes", Value: "two\nlines"}},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSVQuoted(&buf, records))

	assert.Equal(t, "Date,Notes\n2024-01,\"said \"\"hi\"\", left\"\n2024-02,\"two\nlines\"\n", buf.String())
}

func TestLedgerRecords_ExtraColumnsSortedAndFilled(t *testing.T) {
	rows := domain.Ledger{
		{Date: "2024-01", Revenue: 1000.5, Expenses: 1200, Extra: map[string]string{"Zone": "eu"}},
		{Date: "2024-02", Revenue: 1500, Expenses: 1100, Extra: map[string]string{"Account": "ops"}},
	}

	records := LedgerRecords(rows)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"Date", "Revenue", "Expenses", "Account", "Zone"}, headerOf(records))
	assert.Equal(t, []string{"2024-01", "1000.5", "1200", "", "eu"}, valuesFor(records[0], headerOf(records)))
}

func TestWriteLedger_EmptyLedgerKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, domain.Ledger{}))

	assert.Equal(t, "Date,Revenue,Expenses\n", buf.String())
}

func TestMarshalLedger_IsStable(t *testing.T) {
	rows := domain.Ledger{{Date: "2024-01", Revenue: 1, Expenses: 2, Extra: map[string]string{"b": "2", "a": "1"}}}

	first, err := MarshalLedger(rows)
	require.NoError(t, err)
	second, err := MarshalLedger(rows.Clone())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Date,Revenue,Expenses,a,b\n2024-01,1,2,1,2\n", string(first))
}
