// cmd/signalengine runs the live signal engine. Ticks arrive as JSON
// lines on stdin (or a file via --ticks), one object per line:
//
//	{"bid":2315.42,"ask":2315.67,"source":"MT5"}
//
// An optional "bars" array carries an externally built M5 series that
// bypasses the aggregator for that cycle. Every tick produces a full
// snapshot on stdout unless --quiet is set.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-enginev1/config"
	"signal-enginev1/internal/engine"
	"signal-enginev1/internal/logger"
	"signal-enginev1/internal/metrics"
	"signal-enginev1/internal/model"
	redisstore "signal-enginev1/internal/store/redis"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

// tickLine is one stdin line: a tick plus optional external bar series.
type tickLine struct {
	model.Tick
	Bars    []model.Bar `json:"bars,omitempty"`
	BarsH1  []model.Bar `json:"bars_h1,omitempty"`
	FileAge float64     `json:"file_age,omitempty"` // seconds since the bars were built
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	ticksPath := flag.String("ticks", "-", "Tick input: '-' for stdin or a path to a JSON-lines file")
	quiet := flag.Bool("quiet", false, "Suppress per-tick snapshot output")
	noArchive := flag.Bool("no-archive", false, "Disable the SQLite bar archive")
	flag.Parse()

	cfg := config.Load()
	slogger := logger.Init("signalengine", logger.ParseLevel(cfg.LogLevel))
	slogger.Info("starting", "symbol", cfg.Symbol)

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	msrv := metrics.NewServer(cfg.MetricsAddr, health)
	msrv.Start()

	var archive *sqlitestore.Archive
	if !*noArchive {
		var err error
		archive, err = sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath, Symbol: cfg.Symbol})
		if err != nil {
			log.Fatalf("[signalengine] sqlite open failed: %v", err)
		}
	}

	publisher, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Symbol:   cfg.Symbol,
	})
	if err != nil {
		// Publishing is best-effort; run without it.
		slogger.Warn("redis unavailable, publishing disabled", "err", err)
		publisher = nil
	}

	eng := engine.New(engine.Options{
		Symbol:       cfg.Symbol,
		CachePath:    cfg.CacheFile,
		BacktestPath: cfg.BacktestFile,
		Logger:       slogger,
		Metrics:      m,
		Health:       health,
		Archive:      archive,
		Publisher:    publisher,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slogger.Info("shutdown signal received")
		cancel()
	}()

	in, closeIn, err := openTicks(*ticksPath)
	if err != nil {
		log.Fatalf("[signalengine] tick input: %v", err)
	}
	defer closeIn()

	out := json.NewEncoder(os.Stdout)
	processed := 0

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
loop:
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var t tickLine
		if err := json.Unmarshal(line, &t); err != nil {
			slogger.Warn("bad tick line", "err", err)
			continue
		}
		if t.Bid <= 0 {
			continue
		}

		snap := eng.Evaluate(ctx, engine.Input{
			Tick:       t.Tick,
			Bars:       t.Bars,
			HourlyBars: t.BarsH1,
			BarsAge:    time.Duration(t.FileAge * float64(time.Second)),
		})
		processed++

		if !*quiet {
			if err := out.Encode(snap); err != nil {
				slogger.Error("snapshot encode failed", "err", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		slogger.Error("tick read failed", "err", err)
	}

	slogger.Info("draining", "ticks_processed", processed)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	msrv.Stop(shutdownCtx)

	if err := eng.Close(); err != nil {
		slogger.Error("shutdown flush failed", "err", err)
		os.Exit(1)
	}
	slogger.Info("stopped")
}

func openTicks(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
