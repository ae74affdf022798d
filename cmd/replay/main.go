// cmd/replay feeds archived M5 bars through a fresh scorer to see how the
// signal logic would have behaved over stored history. Bar timestamps
// stand in for the wall clock, so backtest entries resolve exactly four
// hours of bar time after they are tracked.
//
// Usage:
//
//	go run ./cmd/replay --db=data/bars.db --symbol=XAUEUR --window=200
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"signal-enginev1/internal/backtest"
	"signal-enginev1/internal/scorer"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	dbPath := flag.String("db", "data/bars.db", "Path to SQLite bar archive")
	symbol := flag.String("symbol", "XAUEUR", "Instrument symbol")
	window := flag.Int("window", 200, "Sliding bar window fed to the scorer")
	verbose := flag.Bool("v", false, "Print every signal transition")
	flag.Parse()

	archive, err := sqlitestore.New(sqlitestore.Config{DBPath: *dbPath, Symbol: *symbol})
	if err != nil {
		log.Fatalf("[replay] sqlite open failed: %v", err)
	}
	defer archive.Close()

	bars, err := archive.ReadBars(0)
	if err != nil {
		log.Fatalf("[replay] read bars: %v", err)
	}
	if len(bars) < 50 {
		log.Fatalf("[replay] only %d archived bars, need at least 50", len(bars))
	}
	log.Printf("[replay] replaying %d bars for %s", len(bars), *symbol)

	// Scratch state in a temp dir so the replay never touches live files.
	tmp, err := os.MkdirTemp("", "replay")
	if err != nil {
		log.Fatalf("[replay] tempdir: %v", err)
	}
	defer os.RemoveAll(tmp)

	validator := backtest.New(filepath.Join(tmp, "backtest_data.json"))
	sc := scorer.New(validator)

	transitions := 0
	for i := 50; i <= len(bars); i++ {
		win := bars[:i]
		if len(win) > *window {
			win = win[len(win)-*window:]
		}

		last := &bars[i-1]
		now, err := last.ParsedTime()
		if err != nil {
			log.Printf("[replay] bad bar time %q: %v", last.Time, err)
			continue
		}

		ev := sc.Evaluate(win, last.Close, now)
		if ev.Changed {
			transitions++
			if *verbose {
				fmt.Printf("  [%s] %-4s conf=%d score=%.1f price=%.2f\n",
					last.Time, ev.Signal, ev.Confidence, ev.Score, last.Close)
			}
		}
	}

	wr := validator.WinRate()
	stats := sc.Stats()

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║         REPLAY COMPLETE              ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Bars replayed:     %-16d ║\n", len(bars))
	fmt.Printf("║  Transitions:       %-16d ║\n", transitions)
	fmt.Printf("║  BUY / SELL / HOLD: %-16s ║\n", fmt.Sprintf("%d / %d / %d", stats.Buy, stats.Sell, stats.Hold))
	fmt.Printf("║  Resolved:          %-16d ║\n", wr.Total)
	fmt.Printf("║  Win rate:          %-15.1f%% ║\n", wr.WinRate)
	fmt.Printf("║  Still pending:     %-16d ║\n", wr.Pending)
	fmt.Println("╚══════════════════════════════════════╝")
}
