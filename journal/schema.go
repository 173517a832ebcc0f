package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	ticket INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	volume REAL NOT NULL,
	open_price REAL NOT NULL,
	close_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	commission REAL NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, ticket)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	initial_capital REAL NOT NULL,
	final_balance REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	total_pl REAL NOT NULL,
	win_rate REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	sharpe_ratio REAL NOT NULL,
	expectancy REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
`
