// Package cleanup provides ascii reporter
package cleanup

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/caching/stores"
)

const (
	cyan       = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	cyanBright = "\033[38;2;97;228;240m"  // Brighter Cyan: #61E4F0
	dimCyan    = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey       = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	success    = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	white      = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	reset      = "\033[0m"
	bold       = "\033[1m"
)

// Reporter prints coloured cache summaries for verbose cleanup runs.
type Reporter struct {
	cache *stores.RenderStore
	out   io.Writer
}

func NewReporter(cache *stores.RenderStore) *Reporter {
	return &Reporter{cache: cache, out: os.Stdout}
}

func (r *Reporter) LogStage(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(r.out, "%s%s✦ %s%s%s\n", success, bold, grey, formattedMsg, reset)
}

// Report renders the cache summary line.
func (r *Reporter) Report(removed int, duration time.Duration) string {
	stats := r.cache.Stats()
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 MST")

	ratio := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		ratio = float64(stats.Hits) / float64(total) * 100
	}

	return fmt.Sprintf("%s%s▓ %s | Render cache%s\n"+
		"%s✦ %sentries: %s%d%s  %sbytes: %s%d%s  %shit ratio: %s%.1f%%%s  %spruned: %s%d%s %s(%v)%s\n",
		bold, dimCyan, timestamp, reset,
		cyanBright, grey, white, stats.Entries, reset,
		grey, white, stats.Bytes, reset,
		grey, white, ratio, reset,
		grey, cyan, removed, reset,
		grey, duration, reset)
}

func (r *Reporter) PrintReport(removed int, duration time.Duration) {
	fmt.Fprint(r.out, r.Report(removed, duration))
}
