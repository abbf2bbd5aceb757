package main

import (
	"fmt"
	"strings"
)

// formatStats renders cache statistics as an aligned text block.
func formatStats(stats *cacheStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image cache:\n")
	fmt.Fprintf(&b, "  Entries:       %d\n", stats.Entries)
	fmt.Fprintf(&b, "  Size:          %s\n", formatBytes(stats.TotalBytes))
	fmt.Fprintf(&b, "  Hits:          %d\n", stats.Hits)
	fmt.Fprintf(&b, "  Misses:        %d\n", stats.Misses)
	fmt.Fprintf(&b, "  Evictions:     %d\n", stats.Evictions)
	fmt.Fprintf(&b, "  Stale served:  %d\n", stats.StaleServed)
	fmt.Fprintf(&b, "Enhancements:    %d\n", stats.EnhancementEntries)
	fmt.Fprintf(&b, "Resolutions:     %d\n", stats.ResolutionEntries)
	return b.String()
}

// formatBytes renders a byte count in human-readable units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
