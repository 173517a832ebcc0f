package market

// InstrumentMeta carries the per-symbol trading conventions the
// simulation relies on. Values follow the retail CFD convention for
// majors: one standard lot is 100,000 units of base currency and one
// pip is worth $10 per lot.
type InstrumentMeta struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string

	PipLocation  int     // 10^PipLocation is one pip
	ContractSize float64 // base-currency units per 1.0 lot
	MinimumLot   float64
	PipValue     float64 // account currency per pip per lot
}

// PipSize returns the price increment of one pip.
func (m InstrumentMeta) PipSize() float64 {
	size := 1.0
	for i := 0; i > m.PipLocation; i-- {
		size /= 10
	}
	return size
}

const (
	// StandardContractSize is the lot size used when a symbol has no
	// metadata entry.
	StandardContractSize = 100_000

	// StandardMinimumLot is the default broker minimum volume.
	StandardMinimumLot = 0.01
)

var Instruments = map[string]InstrumentMeta{
	"EURUSD": {
		Name:          "EURUSD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		PipLocation:   -4,
		ContractSize:  StandardContractSize,
		MinimumLot:    StandardMinimumLot,
		PipValue:      10,
	},
	"GBPUSD": {
		Name:          "GBPUSD",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		PipLocation:   -4,
		ContractSize:  StandardContractSize,
		MinimumLot:    StandardMinimumLot,
		PipValue:      10,
	},
	"AUDUSD": {
		Name:          "AUDUSD",
		BaseCurrency:  "AUD",
		QuoteCurrency: "USD",
		PipLocation:   -4,
		ContractSize:  StandardContractSize,
		MinimumLot:    StandardMinimumLot,
		PipValue:      10,
	},
}

// Meta returns the metadata for symbol, falling back to major-pair
// conventions for unknown symbols so backtests on arbitrary datasets
// still run.
func Meta(symbol string) InstrumentMeta {
	if m, ok := Instruments[symbol]; ok {
		return m
	}
	return InstrumentMeta{
		Name:         symbol,
		PipLocation:  -4,
		ContractSize: StandardContractSize,
		MinimumLot:   StandardMinimumLot,
		PipValue:     10,
	}
}
