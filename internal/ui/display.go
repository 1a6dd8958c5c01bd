package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ari/statcache/internal/gameplay"
)

// ANSI color codes
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorCyan    = "\033[36m"
	ColorMagenta = "\033[35m"
	ColorBold    = "\033[1m"
)

// FormatInt formats an integer with thousands separators
func FormatInt(v int64) string {
	return humanize.Comma(v)
}

// FormatFloat formats a float with thousands separators and no trailing zeros
func FormatFloat(v float64) string {
	return humanize.Commaf(v)
}

// FormatOptional formats an optional value, "-" when absent
func FormatOptional[T gameplay.Number](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}

// statisticRow is one rendered line of the statistics table.
type statisticRow struct {
	key, kind, value, def, min, max, maxChange, window string
	incrementOnly                                      bool
}

func newStatisticRow(s gameplay.Statistic) statisticRow {
	row := statisticRow{
		key:           s.Key,
		kind:          string(s.Kind()),
		window:        FormatOptional(s.Window, FormatFloat),
		incrementOnly: s.IncrementOnly,
	}
	switch v := s.Values.(type) {
	case gameplay.IntValues:
		row.value = FormatInt(v.Value)
		row.def = FormatInt(v.Default())
		row.min = FormatOptional(v.MinValue, FormatInt)
		row.max = FormatOptional(v.MaxValue, FormatInt)
		row.maxChange = FormatOptional(v.MaxChange, FormatInt)
	case gameplay.FloatValues:
		row.setFloat(v.Fields)
	case gameplay.AvgRateValues:
		row.setFloat(v.Fields)
	}
	return row
}

func (r *statisticRow) setFloat(f gameplay.Fields[float64]) {
	r.value = FormatFloat(f.Value)
	r.def = FormatFloat(f.Default())
	r.min = FormatOptional(f.MinValue, FormatFloat)
	r.max = FormatOptional(f.MaxValue, FormatFloat)
	r.maxChange = FormatOptional(f.MaxChange, FormatFloat)
}

// DisplayStatistics renders the cached statistics as a table, sorted by key
func DisplayStatistics(w io.Writer, stats []gameplay.Statistic) {
	fmt.Fprintf(w, "\n%sGameplay Statistics%s (%d)\n", ColorBold, ColorReset, len(stats))
	fmt.Fprintln(w, strings.Repeat("=", 96))

	if len(stats) == 0 {
		fmt.Fprintf(w, "  %sNo statistics%s\n", ColorYellow, ColorReset)
		fmt.Fprintln(w, strings.Repeat("=", 96))
		return
	}

	sorted := append([]gameplay.Statistic(nil), stats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	fmt.Fprintf(w, "  %-24s %-8s %12s %10s %10s %10s %10s %8s\n",
		"Key", "Kind", "Value", "Default", "Min", "Max", "MaxChange", "Window")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 94))
	for _, s := range sorted {
		row := newStatisticRow(s)
		key := row.key
		if row.incrementOnly {
			key += " " + ColorCyan + "↑" + ColorReset
		}
		fmt.Fprintf(w, "  %-24s %-8s %12s %10s %10s %10s %10s %8s\n",
			key, row.kind, row.value, row.def, row.min, row.max, row.maxChange, row.window)
	}

	fmt.Fprintln(w, strings.Repeat("=", 96))
}

// DisplaySyncStatus renders the sync state of a user database
func DisplaySyncStatus(w io.Writer, path string, synced bool) {
	fmt.Fprintf(w, "%s%sDatabase%s  %s\n", ColorBold, ColorBlue, ColorReset, path)
	fmt.Fprintf(w, "%s%sStats%s     ", ColorBold, ColorMagenta, ColorReset)
	if synced {
		fmt.Fprintf(w, "%sSynced%s\n", ColorGreen, ColorReset)
	} else {
		fmt.Fprintf(w, "%sNever synced%s\n", ColorYellow, ColorReset)
	}
}

// DisplaySyncResult renders the outcome of a completed sync
func DisplaySyncResult(w io.Writer, result gameplay.SyncResult) {
	fmt.Fprintf(w, "%sSync complete:%s %s statistics stored (sync %s)\n",
		ColorGreen, ColorReset, FormatInt(int64(result.Count)), result.ID)
}

// Error displays an error message
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%sError: %s%s\n", ColorRed, msg, ColorReset)
}
