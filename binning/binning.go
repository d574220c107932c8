// Package binning holds the binning curve: the number of sequence
// clusters observed at each similarity criterion. The curve itself is
// produced by an external binning program; this package only reads,
// validates and orders it.
package binning

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// BinLevel is one point of the binning curve: the number of clusters
// (Level) at a similarity criterion (Crit).
type BinLevel struct {
	Crit  float64 `json:"crit"`
	Level int     `json:"level"`
}

// Binning is a binning curve, ordered by decreasing criterion.
type Binning []BinLevel

// Read parses a binning curve from whitespace-separated
// "criterion level" lines. Empty lines and lines starting with '#' are
// skipped. The result is sorted by decreasing criterion.
func Read(rd io.Reader) (Binning, error) {
	var bins Binning
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("binning: expected two fields, got %q", line)
		}
		crit, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("binning: bad criterion %q: %v", fields[0], err)
		}
		level, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("binning: bad cluster count %q: %v", fields[1], err)
		}
		bins = append(bins, BinLevel{Crit: crit, Level: level})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	bins.Sort()
	return bins, nil
}

// Write writes the curve in the fixed-width two-column format the
// simulation programs read.
func (bins Binning) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, bin := range bins {
		fmt.Fprintf(bw, "%-20.6f %-20d\n", bin.Crit, bin.Level)
	}
	return bw.Flush()
}

// Sort orders the curve by decreasing criterion.
func (bins Binning) Sort() {
	sort.SliceStable(bins, func(i, j int) bool {
		return bins[i].Crit > bins[j].Crit
	})
}

// Validate checks criteria are in [0, 1] and cluster counts are positive.
func (bins Binning) Validate() error {
	if len(bins) == 0 {
		return fmt.Errorf("binning: empty curve")
	}
	for _, bin := range bins {
		if bin.Crit < 0 || bin.Crit > 1 {
			return fmt.Errorf("binning: criterion %v out of range [0,1]", bin.Crit)
		}
		if bin.Level < 1 {
			return fmt.Errorf("binning: cluster count %d at criterion %v is not positive", bin.Level, bin.Crit)
		}
	}
	return nil
}
