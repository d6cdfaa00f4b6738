// Command bars builds one bar series from a contract's intraday file and
// prints it as JSON, for eyeballing aggregation output without running the
// full pipeline.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"scflow/config"
	"scflow/internal/sctime"
	"scflow/logger"
	"scflow/processor"
	"scflow/reader"
)

func main() {
	log := logger.GetLogger()

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	symbol := flag.String("symbol", "", "Contract symbol, e.g. ESU25_FUT_CME")
	width := flag.Duration("width", 0, "Time bar width, e.g. 1m (exclusive with -trades/-volume)")
	trades := flag.Int("trades", 0, "Trades per bar")
	volume := flag.Int64("volume", 0, "Volume threshold per bar")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	contract, ok := cfg.Contracts[*symbol]
	if !ok {
		log.WithFields(logger.Fields{"symbol": *symbol}).Error("contract not configured")
		os.Exit(2)
	}

	tr, err := reader.OpenTick(reader.TickPath(cfg.DataRoot, *symbol))
	if err != nil {
		log.WithError(err).Error("failed to open tick file")
		os.Exit(1)
	}
	recs, err := tr.ReadRecords(0)
	tr.Close()
	if err != nil {
		log.WithError(err).Error("failed to read tick records")
		os.Exit(1)
	}
	reader.AdjustTickPrices(recs, contract.PriceAdjustment)

	start, end, err := cfg.SessionBounds()
	if err != nil {
		log.WithError(err).Error("invalid session bounds")
		os.Exit(1)
	}
	builder := processor.NewBarBuilder(sctime.NewClock(cfg.UTCOffset), processor.SessionWindow{
		Start:                start,
		End:                  end,
		NewBarAtSessionStart: cfg.Session.NewBarAtSessionStart,
	})

	var bars interface{}
	switch {
	case *width > 0:
		bars = builder.TimeBars(recs, *width)
	case *trades > 0:
		bars = builder.TradeBars(recs, *trades)
	case *volume > 0:
		bars = builder.VolumeBars(recs, *volume)
	default:
		bars = builder.TimeBars(recs, time.Minute)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bars); err != nil {
		log.WithError(err).Error("failed to encode bars")
		os.Exit(1)
	}
}
