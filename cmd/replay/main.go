// Command replay interleaves a day's trades and depth commands into one
// timestamp-ordered stream and prints it as JSON lines. With -from it
// resynchronizes past the given local time first, the way a consumer
// rejoining mid-session would.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"os"
	"time"

	"scflow/internal/sctime"
	"scflow/logger"
	"scflow/processor"
)

type replayLine struct {
	Timestamp int64   `json:"timestamp"`
	Kind      string  `json:"kind"`
	Command   string  `json:"command,omitempty"`
	Side      string  `json:"side,omitempty"`
	Price     float64 `json:"price"`
	Quantity  uint32  `json:"quantity"`
}

func main() {
	log := logger.GetLogger()

	dataRoot := flag.String("data", ".", "Sierra Chart data root")
	symbol := flag.String("symbol", "", "Contract symbol, e.g. ESU25_FUT_CME")
	date := flag.String("date", "", "Session date, YYYYMMDD")
	from := flag.String("from", "", "Resume from local time of day, HH:MM:SS")
	utcOffset := flag.Float64("utc-offset", 0, "UTC offset in hours used when the files were written")
	adjust := flag.Float64("adjust", 1, "Price adjustment factor")
	flag.Parse()

	if *symbol == "" || *date == "" {
		flag.Usage()
		os.Exit(2)
	}

	clock := sctime.NewClock(*utcOffset)
	merger, err := processor.OpenMerger(*dataRoot, *symbol, *date, clock, *adjust)
	if err != nil {
		log.WithError(err).Error("failed to open merged stream")
		os.Exit(1)
	}

	if *from != "" {
		tod, err := sctime.ParseTimeOfDay(*from)
		if err != nil {
			log.WithError(err).Error("invalid time of day")
			os.Exit(2)
		}
		day, err := time.Parse("20060102", *date)
		if err != nil {
			log.WithError(err).Error("invalid date")
			os.Exit(2)
		}
		if err := merger.ResyncTo(clock.FromTime(day)+tod, true); err != nil {
			log.WithError(err).Error("resync failed")
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		rec, err := merger.Next()
		if errors.Is(err, processor.ErrExhausted) {
			return
		}
		if err != nil {
			log.WithError(err).Error("replay failed")
			os.Exit(1)
		}

		line := replayLine{Timestamp: rec.Timestamp}
		if rec.Tick != nil {
			line.Kind = "tick"
			line.Side = rec.Tick.Side.String()
			line.Price = rec.Tick.Price
			line.Quantity = rec.Tick.Quantity
		} else {
			line.Kind = "depth"
			line.Command = rec.Depth.Command.String()
			line.Price = rec.Depth.Price
			line.Quantity = rec.Depth.Quantity
		}
		if err := enc.Encode(line); err != nil {
			log.WithError(err).Error("failed to encode record")
			os.Exit(1)
		}
	}
}
