// ABOUTME: Shared output helpers: JSON encoding, tables and status coloring

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func newTable(headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, color.New(color.Bold).Sprint(strings.Join(headers, "\t")))
	return w
}

func row(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

// colorState paints well-known health words.
func colorState(s string) string {
	switch strings.ToLower(s) {
	case "ok", "healthy", "online", "active", "running", "enabled", "passed":
		return color.GreenString(s)
	case "warning", "degraded", "idle", "pending", "unknown":
		return color.YellowString(s)
	case "offline", "failed", "failing", "error", "disabled":
		return color.RedString(s)
	default:
		return s
	}
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func enabledText(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func notice(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString(format, args...))
}
