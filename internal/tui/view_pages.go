package tui

import (
	"fmt"
	"strings"
)

func (m Model) readsPageLines() []string {
	lines := []string{"Live Reads"}
	if m.filterActive || m.filter.Value() != "" {
		lines = append(lines, m.filter.View(), "")
	}

	rows := m.visibleRows()
	if len(rows) == 0 {
		if len(m.rows) == 0 {
			return append(lines, "No tags yet. Press s to start reading.")
		}
		return append(lines, "No tag matches the filter.")
	}

	lines = append(lines, fmt.Sprintf("%-28s %4s %7s  %-8s %-8s", "EPC", "ANT", "COUNT", "FIRST", "LAST"))
	lines = append(lines, "─")
	limit := m.readViewSize()
	for i, row := range rows {
		if i >= limit {
			lines = append(lines, fmt.Sprintf("... %d more tag(s)", len(rows)-limit))
			break
		}
		lines = append(lines, fmt.Sprintf("%-28s %4d %7d  %-8s %-8s",
			trimText(row.EPC, 28),
			row.Antenna,
			row.Count,
			formatShortTime(row.FirstSeen),
			formatShortTime(row.LastSeen),
		))
	}
	return lines
}

func (m Model) logsPageLines() []string {
	lines := []string{"Event Log"}
	visible := m.visibleLogs(m.logViewSize())
	if len(visible) == 0 {
		return append(lines, "No events yet.")
	}
	for _, l := range visible {
		lines = append(lines, statusTag(l)+" "+l)
	}
	if m.logScroll > 0 {
		lines = append(lines, fmt.Sprintf("(scrolled %d line(s) up)", m.logScroll))
	}
	return lines
}

func (m Model) helpPageLines() []string {
	return []string{
		"Help",
		"s      start: configure antennas, load and start the ROSpec",
		"x      stop the ROSpec and close the session",
		"p      pause or resume reports without closing the session",
		"/      filter the read table by EPC prefix",
		"c      clear the current table or log",
		"1 2 3  switch page, tab cycles",
		"q      stop the reader and exit",
		"",
		"Reader " + m.reader.Endpoint().String() + "  " + strings.ToUpper(m.stats.State.String()),
	}
}
