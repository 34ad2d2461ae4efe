package tui

import (
	"strings"
	"time"
)

func statusTag(status string) string {
	text := strings.ToLower(status)
	switch {
	case strings.Contains(text, "failed"),
		strings.Contains(text, "error"),
		strings.Contains(text, "timeout"),
		strings.Contains(text, "lost"),
		strings.Contains(text, "closed"):
		return "[ERR]"
	case strings.Contains(text, "stopped"),
		strings.Contains(text, "paused"),
		strings.Contains(text, "idle"),
		strings.Contains(text, "not supported"):
		return "[WARN]"
	case strings.Contains(text, "connected"),
		strings.Contains(text, "running"),
		strings.Contains(text, "new tag"):
		return "[OK]"
	default:
		return "[INFO ]"
	}
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func padRight(s string, width int) string {
	n := runeLen(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func trimText(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
