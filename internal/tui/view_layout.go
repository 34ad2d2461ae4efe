package tui

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	contentWidth := m.panelContentWidth()

	headerPanel := renderPanel(
		"",
		[]string{
			"LLRP Reader Monitor",
			m.tabsLine(),
			m.metaLine(),
			m.statusLine(),
		},
		contentWidth,
	)

	page := m.pageLines()
	pageTitle := "Page"
	var pageBody []string
	if len(page) > 0 {
		pageTitle = page[0]
		pageBody = page[1:]
	}
	pageBody = m.clampPageBody(pageBody)
	pagePanel := renderPanel(pageTitle, pageBody, contentWidth)

	footerPanel := renderPanel(
		"",
		[]string{"Keys: " + m.footerLine()},
		contentWidth,
	)

	return paintLayout(strings.Join([]string{headerPanel, pagePanel, footerPanel}, "\n"))
}

func (m Model) clampPageBody(lines []string) []string {
	height := m.height
	if height <= 0 {
		height = 24
	}

	available := height - panelLineCount("", 4) - panelLineCount("", 1)
	if available < 7 {
		available = 7
	}
	bodyLimit := available - panelLineCount("page-title", 0)
	if bodyLimit < 1 {
		bodyLimit = 1
	}
	if len(lines) <= bodyLimit {
		return lines
	}
	if bodyLimit == 1 {
		return []string{fmt.Sprintf("... %d more line(s)", len(lines))}
	}

	clipped := make([]string, 0, bodyLimit)
	clipped = append(clipped, lines[:bodyLimit-1]...)
	clipped = append(clipped, fmt.Sprintf("... %d more line(s)", len(lines)-bodyLimit+1))
	return clipped
}

func panelLineCount(title string, bodyLines int) int {
	if strings.TrimSpace(title) == "" {
		return bodyLines + 2
	}
	return bodyLines + 4
}

func (m Model) pageLines() []string {
	switch m.activeScreen {
	case screenReads:
		return m.readsPageLines()
	case screenLogs:
		return m.logsPageLines()
	case screenHelp:
		return m.helpPageLines()
	default:
		return []string{"Unknown page"}
	}
}

func renderPanel(title string, lines []string, contentWidth int) string {
	if contentWidth < 24 {
		contentWidth = 24
	}

	var b strings.Builder
	horizontal := strings.Repeat("─", contentWidth+2)

	b.WriteString("┌" + horizontal + "┐")
	if strings.TrimSpace(title) != "" {
		titleText := "[" + strings.ToUpper(strings.TrimSpace(title)) + "]"
		b.WriteString("\n│ ")
		b.WriteString(padRight(trimText(titleText, contentWidth), contentWidth))
		b.WriteString(" │\n")
		b.WriteString("├" + horizontal + "┤")
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	for _, line := range lines {
		b.WriteString("\n│ ")
		b.WriteString(padRight(trimText(line, contentWidth), contentWidth))
		b.WriteString(" │")
	}
	b.WriteString("\n└" + horizontal + "┘")
	return b.String()
}

func (m Model) panelContentWidth() int {
	if m.width <= 0 {
		return 78
	}
	width := m.width - 4
	if width < 36 {
		width = 36
	}
	if width > 120 {
		width = 120
	}
	return width
}
