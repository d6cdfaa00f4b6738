// Command contracts expands the built-in futures patterns into concrete
// contract codes for a date range, one per line.
package main

import (
	"flag"
	"fmt"
	"os"

	"scflow/internal/symbols"
	"scflow/logger"
)

func main() {
	log := logger.GetLogger()

	start := flag.String("start", "", "First contract code, e.g. H25")
	end := flag.String("end", "", "Last contract code, e.g. Z26")
	flag.Parse()

	if *start == "" || *end == "" {
		flag.Usage()
		os.Exit(2)
	}

	expanded, err := symbols.Expand(symbols.DefaultPatterns, *start, *end)
	if err != nil {
		log.WithError(err).Error("failed to expand contract range")
		os.Exit(1)
	}
	for _, symbol := range expanded {
		fmt.Println(symbol)
	}
}
