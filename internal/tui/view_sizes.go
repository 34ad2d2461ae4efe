package tui

func (m Model) logViewSize() int {
	if m.height <= 0 {
		return 12
	}
	size := m.height - 12
	if size < 6 {
		size = 6
	}
	if size > 40 {
		size = 40
	}
	return size
}

func (m Model) readViewSize() int {
	if m.height <= 0 {
		return 10
	}
	size := m.height - 16
	if size < 4 {
		size = 4
	}
	return size
}

func (m Model) visibleLogs(limit int) []string {
	if len(m.logs) == 0 || limit <= 0 {
		return nil
	}

	end := len(m.logs) - m.logScroll
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return m.logs[start:end]
}
