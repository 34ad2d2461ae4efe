package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"rfid_llrp_go/sdk"
)

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "1":
		m.activeScreen = screenReads
		return m, nil
	case "2":
		m.activeScreen = screenLogs
		return m, nil
	case "3", "?":
		m.activeScreen = screenHelp
		return m, nil
	case "tab":
		m.activeScreen = (m.activeScreen + 1) % (screenHelp + 1)
		return m, nil
	case "s":
		return m.startReading()
	case "x":
		if m.reader.State() == sdk.StateIdle {
			m.status = "Reader already idle"
			return m, nil
		}
		m.status = "Stopping reader..."
		return m, stopCmd(m.reader)
	case "p":
		return m.togglePause()
	}

	switch m.activeScreen {
	case screenReads:
		return m.updateReadKeys(msg)
	case screenLogs:
		return m.updateLogKeys(msg)
	default:
		return m, nil
	}
}

func (m Model) startReading() (tea.Model, tea.Cmd) {
	if m.starting {
		return m, nil
	}
	if m.reader.State() == sdk.StateRunning {
		m.status = "Reader already running"
		return m, nil
	}
	m.starting = true
	m.status = "Starting reader " + m.reader.Endpoint().String()
	m.pushLog(time.Now(), m.status)
	return m, tea.Batch(startCmd(m.reader), m.spinner.Tick)
}

func (m Model) togglePause() (tea.Model, tea.Cmd) {
	p, ok := m.reader.(pauser)
	if !ok {
		m.status = "Pause is not supported by this reader"
		return m, nil
	}
	switch m.reader.State() {
	case sdk.StateRunning:
		return m, pauseCmd(p, true)
	case sdk.StateStopped:
		return m, pauseCmd(p, false)
	default:
		m.status = "Reader is not running"
		return m, nil
	}
}

func (m Model) updateReadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.filterActive = true
		cmd := m.filter.Focus()
		return m, cmd
	case "c":
		m.clearReads()
		m.status = "Read table cleared"
	}
	return m, nil
}

func (m Model) updateLogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.logScroll < len(m.logs)-1 {
			m.logScroll++
		}
	case "down", "j":
		if m.logScroll > 0 {
			m.logScroll--
		}
	case "c":
		m.logs = nil
		m.logScroll = 0
	}
	return m, nil
}
