// Package symbols generates futures contract identifiers for bulk download
// lists.
package symbols

import (
	"fmt"
	"strconv"
	"strings"
)

// MonthCodes lists the futures delivery month codes in calendar order.
const MonthCodes = "FGHJKMNQUVXZ"

// Pattern describes one contract family. Format contains a {MYY} placeholder
// replaced with the month code and two-digit year, e.g. "ES{MYY}_FUT_CME".
type Pattern struct {
	Format  string
	Months  string
	Enabled bool
}

// DefaultPatterns covers the contract families we bulk download.
var DefaultPatterns = []Pattern{
	{Format: "ES{MYY}_FUT_CME", Months: "HMUZ", Enabled: true},
	{Format: "NQ{MYY}_FUT_CME", Months: "HMUZ", Enabled: true},
	{Format: "CL{MYY}_FUT_CME", Months: MonthCodes, Enabled: false},
}

// Expand produces contract IDs for every enabled pattern between the start
// and end contract codes, inclusive. Codes are a month letter followed by a
// two-digit year, e.g. "H23" through "Z24". Month codes sort the same
// lexically and chronologically, so the range comparison is on the letter.
func Expand(patterns []Pattern, start, end string) ([]string, error) {
	startMonth, startYear, err := splitCode(start)
	if err != nil {
		return nil, err
	}
	endMonth, endYear, err := splitCode(end)
	if err != nil {
		return nil, err
	}
	if endYear < startYear || (endYear == startYear && endMonth < startMonth) {
		return nil, fmt.Errorf("contract range %s..%s is inverted", start, end)
	}

	var ids []string
	for _, p := range patterns {
		if !p.Enabled {
			continue
		}
		for year := startYear; year <= endYear; year++ {
			for _, month := range p.Months {
				m := byte(month)
				if year == startYear && m < startMonth {
					continue
				}
				if year == endYear && m > endMonth {
					continue
				}
				myy := fmt.Sprintf("%c%02d", m, year)
				ids = append(ids, strings.ReplaceAll(p.Format, "{MYY}", myy))
			}
		}
	}
	return ids, nil
}

func splitCode(code string) (byte, int, error) {
	if len(code) != 3 {
		return 0, 0, fmt.Errorf("contract code %q: want month letter plus two-digit year", code)
	}
	m := code[0]
	if !strings.ContainsRune(MonthCodes, rune(m)) {
		return 0, 0, fmt.Errorf("contract code %q: unknown month code %c", code, m)
	}
	year, err := strconv.Atoi(code[1:])
	if err != nil {
		return 0, 0, fmt.Errorf("contract code %q: bad year: %w", code, err)
	}
	return m, year, nil
}
