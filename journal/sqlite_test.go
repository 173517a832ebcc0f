package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	j := newTestDB(t)

	want := sampleTrade()
	require.NoError(t, j.RecordTrade(want))

	got, err := j.ListTradesByRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, want.Ticket, got[0].Ticket)
	assert.Equal(t, want.Side, got[0].Side)
	assert.InDelta(t, want.RealizedPL, got[0].RealizedPL, 1e-9)
	assert.True(t, want.CloseTime.Equal(got[0].CloseTime))
}

func TestSQLiteDuplicateTicketRejected(t *testing.T) {
	j := newTestDB(t)

	require.NoError(t, j.RecordTrade(sampleTrade()))
	assert.Error(t, j.RecordTrade(sampleTrade()), "run_id+ticket is the primary key")
}

func TestSQLiteEquityCurveOrdered(t *testing.T) {
	j := newTestDB(t)
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	// Insert out of order; listing sorts by time.
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "run-1", Time: base.Add(time.Hour), Balance: 10_100, Equity: 10_100}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "run-1", Time: base, Balance: 10_000, Equity: 10_000}))

	curve, err := j.ListEquityByRun("run-1")
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.True(t, curve[0].Time.Before(curve[1].Time))
	assert.Equal(t, 10_000.0, curve[0].Balance)
}

func TestSQLiteRunSummary(t *testing.T) {
	j := newTestDB(t)

	want := RunRecord{
		RunID:          "run-9",
		Created:        time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
		Symbol:         "EURUSD",
		Timeframe:      "M5",
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10_000,
		FinalBalance:   10_250,
		Trades:         3,
		Wins:           2,
		Losses:         1,
		TotalPL:        250,
		WinRate:        66.67,
		MaxDrawdownPct: 1.2,
		SharpeRatio:    1.8,
		Expectancy:     83.33,
	}
	require.NoError(t, j.RecordRun(want))

	got, err := j.GetRun("run-9")
	require.NoError(t, err)
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.Trades, got.Trades)
	assert.InDelta(t, want.WinRate, got.WinRate, 1e-9)

	_, err = j.GetRun("missing")
	assert.Error(t, err)
}

func TestSQLiteTradesClosedBetween(t *testing.T) {
	j := newTestDB(t)
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	early := sampleTrade()
	early.CloseTime = base

	late := sampleTrade()
	late.Ticket = 1001
	late.CloseTime = base.Add(48 * time.Hour)

	require.NoError(t, j.RecordTrade(early))
	require.NoError(t, j.RecordTrade(late))

	got, err := j.ListTradesClosedBetween(base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1000), got[0].Ticket)
}
