package tui

import (
	"fmt"
	"strings"

	"rfid_llrp_go/sdk"
)

func (m Model) tabsLine() string {
	tabs := []struct {
		name   string
		screen screen
	}{
		{name: "Reads", screen: screenReads},
		{name: "Logs", screen: screenLogs},
		{name: "Help", screen: screenHelp},
	}

	parts := make([]string, 0, len(tabs))
	for i, tab := range tabs {
		mark := "□ "
		if tab.screen == m.activeScreen {
			mark = "▣ "
		}
		parts = append(parts, fmt.Sprintf("%s%d.%s", mark, i+1, strings.ToUpper(tab.name)))
	}
	return strings.Join(parts, "   ")
}

func (m Model) metaLine() string {
	connection := "OFFLINE"
	if m.stats.State != sdk.StateIdle {
		connection = "ONLINE"
	}
	skipped := m.sink.skipped.Load()
	return fmt.Sprintf("Reader %s %s | State %s | Tags %d | Reads %d | Dropped %d",
		connection,
		m.reader.Endpoint(),
		m.stats.State,
		len(m.rows),
		m.totalRead,
		m.stats.Dropped+uint64(skipped),
	)
}

func (m Model) footerLine() string {
	if m.filterActive {
		return "[Enter] Apply  [Esc] Clear  [ctrl+c] Exit"
	}
	common := "[s] Start  [x] Stop  [p] Pause  [tab] Next  [q] Exit"
	switch m.activeScreen {
	case screenReads:
		return "[/] Filter  [c] Clear  " + common
	case screenLogs:
		return "[Up/Down] Scroll  [c] Clear  " + common
	default:
		return common
	}
}

func (m Model) statusLine() string {
	text := m.status
	if m.starting {
		text = m.spinner.View() + " " + text
	}
	return statusTag(m.status) + " " + text
}
