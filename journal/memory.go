package journal

import "sync"

// Memory is an in-process journal. It is the default for backtests and
// for optimizer grid points, where each run needs isolated state and
// nothing on disk.
type Memory struct {
	mu     sync.Mutex
	trades []TradeRecord
	equity []EquitySnapshot
	runs   []RunRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) RecordRun(r RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}

func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EquitySnapshot, len(m.equity))
	copy(out, m.equity)
	return out
}

func (m *Memory) Runs() []RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunRecord, len(m.runs))
	copy(out, m.runs)
	return out
}

func (m *Memory) Close() error { return nil }
