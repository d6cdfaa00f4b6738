// Command book rebuilds the order book for a contract at a point in time
// and prints the top levels as JSON.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"scflow/internal/sctime"
	"scflow/logger"
	"scflow/processor"
	"scflow/reader"
)

func main() {
	log := logger.GetLogger()

	dataRoot := flag.String("data", ".", "Sierra Chart data root")
	symbol := flag.String("symbol", "", "Contract symbol, e.g. ESU25_FUT_CME")
	date := flag.String("date", "", "Session date, YYYYMMDD")
	at := flag.String("at", "", "Local time of day, HH:MM:SS (default: end of day)")
	depth := flag.Int("depth", 10, "Levels per side to print")
	utcOffset := flag.Float64("utc-offset", 0, "UTC offset in hours used when the files were written")
	adjust := flag.Float64("adjust", 1, "Price adjustment factor")
	flag.Parse()

	if *symbol == "" || *date == "" {
		flag.Usage()
		os.Exit(2)
	}

	dr, err := reader.OpenDepth(reader.DepthPath(*dataRoot, *symbol, *date))
	if err != nil {
		log.WithError(err).Error("failed to open depth file")
		os.Exit(1)
	}
	recs, err := dr.ReadRecords(0)
	dr.Close()
	if err != nil {
		log.WithError(err).Error("failed to read depth records")
		os.Exit(1)
	}
	reader.AdjustDepthPrices(recs, *adjust)

	clock := sctime.NewClock(*utcOffset)
	day, err := time.Parse("20060102", *date)
	if err != nil {
		log.WithError(err).Error("invalid date")
		os.Exit(2)
	}
	target := clock.FromTime(day) + sctime.DayMicros - 1
	if *at != "" {
		tod, err := sctime.ParseTimeOfDay(*at)
		if err != nil {
			log.WithError(err).Error("invalid time of day")
			os.Exit(2)
		}
		target = clock.FromTime(day) + tod
	}

	view, err := processor.NewReconstructor(recs).ReconstructAt(target, *depth)
	if err != nil {
		log.WithError(err).Error("reconstruction failed")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		log.WithError(err).Error("failed to encode view")
		os.Exit(1)
	}
}
