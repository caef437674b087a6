package u

import (
	"fmt"
	"strings"
	"time"
)

// FormatSize formats a number in a human-readable form e.g. 1.24 kB
func FormatSize(n int64) string {
	sizes := []int64{1024 * 1024 * 1024, 1024 * 1024, 1024}
	suffixes := []string{"GB", "MB", "kB"}
	for i, size := range sizes {
		if n >= size {
			s := fmt.Sprintf("%.2f", float64(n)/float64(size))
			return strings.TrimSuffix(s, ".00") + " " + suffixes[i]
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

// FormatDuration formats duration with at most 2 fractional digits
// for ms and no fraction for µs
func FormatDuration(d time.Duration) string {
	s := d.String()
	unit := ""
	if strings.HasSuffix(s, "µs") {
		unit = "µs"
	} else if strings.HasSuffix(s, "ms") {
		unit = "ms"
	} else {
		return s
	}
	num := strings.TrimSuffix(s, unit)
	whole, frac, hasFrac := strings.Cut(num, ".")
	if !hasFrac || unit == "µs" {
		return whole + " " + unit
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	return whole + "." + frac + " " + unit
}
