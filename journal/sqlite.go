package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores trades, equity points, and run summaries in a single
// database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, ticket, symbol, side, volume, open_price, close_price, open_time, close_time, commission, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Ticket, t.Symbol, t.Side, t.Volume, t.OpenPrice,
		t.ClosePrice, t.OpenTime, t.CloseTime, t.Commission, t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, balance, equity)
		VALUES (?, ?, ?, ?)`,
		e.RunID, e.Time, e.Balance, e.Equity,
	)
	return err
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, symbol, timeframe, start_time, end_time, initial_capital, final_balance,
		 trades, wins, losses, total_pl, win_rate, max_drawdown_pct, sharpe_ratio, expectancy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Symbol, r.Timeframe, r.Start, r.End,
		r.InitialCapital, r.FinalBalance, r.Trades, r.Wins, r.Losses,
		r.TotalPL, r.WinRate, r.MaxDrawdownPct, r.SharpeRatio, r.Expectancy,
	)
	return err
}

// GetRun returns one run summary by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`
		SELECT run_id, created, symbol, timeframe, start_time, end_time, initial_capital, final_balance,
		       trades, wins, losses, total_pl, win_rate, max_drawdown_pct, sharpe_ratio, expectancy
		FROM runs WHERE run_id = ?`, runID)

	var r RunRecord
	err := row.Scan(
		&r.RunID, &r.Created, &r.Symbol, &r.Timeframe, &r.Start, &r.End,
		&r.InitialCapital, &r.FinalBalance, &r.Trades, &r.Wins, &r.Losses,
		&r.TotalPL, &r.WinRate, &r.MaxDrawdownPct, &r.SharpeRatio, &r.Expectancy,
	)
	if err == sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return RunRecord{}, err
	}
	return r, nil
}

// ListTradesByRun returns a run's trades ordered by close time.
func (j *SQLite) ListTradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, ticket, symbol, side, volume, open_price, close_price,
		       open_time, close_time, commission, realized_pl, reason
		FROM trades WHERE run_id = ? ORDER BY close_time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.RunID, &t.Ticket, &t.Symbol, &t.Side, &t.Volume, &t.OpenPrice,
			&t.ClosePrice, &t.OpenTime, &t.CloseTime, &t.Commission, &t.RealizedPL, &t.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTradesClosedBetween returns trades with close_time in [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, ticket, symbol, side, volume, open_price, close_price,
		       open_time, close_time, commission, realized_pl, reason
		FROM trades WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.RunID, &t.Ticket, &t.Symbol, &t.Side, &t.Volume, &t.OpenPrice,
			&t.ClosePrice, &t.OpenTime, &t.CloseTime, &t.Commission, &t.RealizedPL, &t.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityByRun returns a run's equity curve in time order.
func (j *SQLite) ListEquityByRun(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, balance, equity
		FROM equity WHERE run_id = ? ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Balance, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
