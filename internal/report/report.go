package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary collects the numbers the orchestrator gathers while running a
// dump or restore, rendered as a single styled box once the run finishes.
type Summary struct {
	Action   string // "dump" or "restore"
	Database string

	TablesProcessed int
	FallbackTables  int
	ShardCount      int
	TotalRows       int64

	Duration time.Duration

	// Err is the first fatal error observed, if the run did not complete
	// successfully.
	Err error
}

// Render writes s as a bordered summary box to w: green-bordered on
// success, red-bordered and carrying the failure message otherwise.
func Render(w io.Writer, s Summary) {
	title := titleStyle.Render(fmt.Sprintf("dbaccel — %s summary", s.Action))

	lines := []string{
		labelValue("Database:", s.Database),
		labelValue("Tables processed:", formatInt(int64(s.TablesProcessed))),
		labelValue("Fallback tables:", formatInt(int64(s.FallbackTables))),
		labelValue("Shards written:", formatInt(int64(s.ShardCount))),
		labelValue("Total rows:", formatInt(s.TotalRows)),
		labelValue("Duration:", s.Duration.Round(time.Second).String()),
	}

	style := safeBoxStyle
	content := title + "\n" + strings.Join(lines, "\n")

	if s.Err != nil {
		style = dangerBoxStyle
		content += "\n\n" + dangerText.Render(iconDanger+" Failed") + "\n" + s.Err.Error()
	} else {
		content += "\n\n" + mutedText.Render(iconSafe + " completed")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Width(60).Render(content))
	fmt.Fprintln(w)
}

// formatInt renders n with comma thousands separators, matching the
// dumper's FormatGroupedInt convention for row counts in log output.
func formatInt(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}
