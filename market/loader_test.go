package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "eurusd.csv", `time,open,high,low,close,volume
2024-03-04 09:00:00,1.10000,1.10100,1.09900,1.10050,120
2024-03-04 10:00:00,1.10050,1.10200,1.10000,1.10150,90
`)

	candles, err := LoadCSV(path, "EURUSD", H1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("candles = %d, want 2", len(candles))
	}

	c := candles[0]
	if c.Symbol != "EURUSD" || c.Timeframe != H1 {
		t.Errorf("labels not applied: %+v", c)
	}
	if c.Open != 1.10000 || c.High != 1.10100 || c.Low != 1.09900 || c.Close != 1.10050 {
		t.Errorf("OHLC mismatch: %+v", c)
	}
	if c.Volume != 120 {
		t.Errorf("volume = %.0f, want 120", c.Volume)
	}
	want := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	if !c.Time.Equal(want) {
		t.Errorf("time = %s, want %s", c.Time, want)
	}
}

func TestLoadCSVSkipsBadRows(t *testing.T) {
	path := writeFile(t, "mixed.csv", `time,open,high,low,close,volume
2024-03-04 09:00:00,1.10000,1.10100,1.09900,1.10050,120
not-a-time,1,2,0,1,5
2024-03-04 10:00:00,oops,1.10200,1.10000,1.10150,90
2024-03-04 11:00:00,1.10150,1.10300,1.10100,1.10250,75
`)

	candles, err := LoadCSV(path, "EURUSD", H1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(candles) != 2 {
		t.Errorf("candles = %d, want 2 good rows", len(candles))
	}
}

func TestLoadCSVEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "time,open,high,low,close,volume\n")

	_, err := LoadCSV(path, "EURUSD", H1)
	if _, ok := err.(*DataError); !ok {
		t.Fatalf("err = %v, want DataError", err)
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), "EURUSD", H1); err == nil {
		t.Fatal("loading a missing file succeeded")
	}
}

func TestLoadCSVUnixSeconds(t *testing.T) {
	path := writeFile(t, "unix.csv", `time,open,high,low,close
1709542800,1.10000,1.10100,1.09900,1.10050
1709546400,1.10050,1.10200,1.10000,1.10150
`)

	candles, err := LoadCSV(path, "EURUSD", H1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("candles = %d, want 2", len(candles))
	}
	if candles[0].Volume != 0 {
		t.Errorf("missing volume column should read as 0, got %.0f", candles[0].Volume)
	}
}
