// Package report renders run results for terminals and files.
package report

import (
	"io"
	"text/template"

	"github.com/quantlab/fxbacktest/backtest"
)

var summaryTmpl = template.Must(template.New("summary").Parse(`
==================== BACKTEST {{.RunID}} ====================
Symbol          {{.Symbol}} ({{.Timeframe}})
Period          {{.Start.Format "2006-01-02"}} .. {{.End.Format "2006-01-02"}}
Candles         {{.CandlesCovered}}
Ticks           {{.TicksProcessed}}
Elapsed         {{.Elapsed}}

Capital         {{printf "%.2f" .InitialCapital}} -> {{printf "%.2f" .FinalBalance}}
Total P&L       {{printf "%+.2f" .Summary.TotalPL}} ({{printf "%+.2f" .Summary.TotalReturnPct}}%)
Annualized      {{printf "%+.2f" .Summary.AnnualizedReturnPct}}%

Trades          {{.Summary.TotalTrades}} ({{.Summary.Wins}} wins / {{.Summary.Losses}} losses)
Win rate        {{printf "%.2f" .Summary.WinRate}}%
Expectancy      {{printf "%+.2f" .Summary.Expectancy}} per trade
Avg win / loss  {{printf "%+.2f" .Summary.AverageWin}} / {{printf "%+.2f" .Summary.AverageLoss}}
Max drawdown    {{printf "%.2f" .Summary.MaxDrawdownPct}}%
Sharpe          {{printf "%.2f" .Summary.SharpeRatio}}

Signals placed  {{.SignalsPlaced}} (rejected {{.SignalsRejected}})
=============================================================
`))

// WriteSummary renders the run report to w.
func WriteSummary(w io.Writer, r *backtest.Result) error {
	return summaryTmpl.Execute(w, r)
}

var tradesTmpl = template.Must(template.New("trades").Parse(
	`{{range .}}{{.Ticket}}  {{.Symbol}}  {{.Side}}  {{printf "%.2f" .Volume}}  {{printf "%.5f" .OpenPrice}} -> {{printf "%.5f" .ClosePrice}}  {{printf "%+.2f" .RealizedPL}}  {{.Reason}}
{{end}}`))

// WriteTrades renders the closed-trade ledger, one line per trade.
func WriteTrades(w io.Writer, r *backtest.Result) error {
	return tradesTmpl.Execute(w, r.Trades)
}

var gridTmpl = template.Must(template.New("grid").Parse(
	`fast  slow  trades  win%    pnl        drawdown%
{{range .}}{{printf "%-4d" .FastEMA}}  {{printf "%-4d" .SlowEMA}}  {{printf "%-6d" .Summary.TotalTrades}}  {{printf "%-6.2f" .Summary.WinRate}}  {{printf "%-9.2f" .Summary.TotalPL}}  {{printf "%.2f" .Summary.MaxDrawdownPct}}{{if .Err}}  ERR: {{.Err}}{{end}}
{{end}}`))

// WriteGrid renders optimizer results, best first.
func WriteGrid(w io.Writer, points []backtest.OptimizePoint) error {
	return gridTmpl.Execute(w, points)
}
