package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DepthFile is one per-day depth file discovered for a contract.
type DepthFile struct {
	Path string
	Date string
}

// ListDepthFiles enumerates the per-day depth files for a symbol under the
// data root, keeping only dates at or after sinceDate (empty keeps all), in
// ascending date order. File names follow SYMBOL.YYYYMMDD.depth.
func ListDepthFiles(root, symbol, sinceDate string) ([]DepthFile, error) {
	dir := filepath.Join(root, "Data", "MarketDepthData")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list depth dir: %w", err)
	}

	var files []DepthFile
	prefix := symbol + "."
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".depth") {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".depth")
		if len(date) != 8 {
			continue
		}
		if sinceDate != "" && date < sinceDate {
			continue
		}
		files = append(files, DepthFile{Path: filepath.Join(dir, name), Date: date})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Date < files[j].Date })
	return files, nil
}
