package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"rfid_llrp_go/sdk"
)

const refreshInterval = time.Second

func NewModel(r sdk.Reader) Model {
	in := textinput.New()
	in.Placeholder = "EPC prefix"
	in.Prompt = "Filter: "
	in.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Line

	return Model{
		reader:  r,
		sink:    newReadSink(),
		spinner: sp,
		filter:  in,
		rows:    make(map[string]*tagRow),
		status:  "Press s to start reading " + r.Endpoint().String(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForRead(m.sink.ch),
		waitForStatus(m.reader.Statuses()),
		waitForErr(m.reader.Errors()),
		tickCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 20 {
			m.filter.Width = m.width - 16
		}
		return m, nil

	case tea.KeyMsg:
		if m.filterActive {
			return m.updateFilterInput(msg)
		}
		return m.updateKey(msg)

	case readMsg:
		m.recordRead(msg.Event)
		return m, waitForRead(m.sink.ch)

	case statusMsg:
		m.pushLog(msg.Event.When, msg.Event.Message)
		return m, waitForStatus(m.reader.Statuses())

	case readerErrMsg:
		m.pushLog(time.Now(), "error: "+msg.Err.Error())
		m.status = "Reader error: " + msg.Err.Error()
		return m, waitForErr(m.reader.Errors())

	case startFinishedMsg:
		m.starting = false
		m.paused = false
		if msg.Err != nil {
			m.status = "Start failed: " + msg.Err.Error()
			m.pushLog(time.Now(), m.status)
			return m, nil
		}
		m.status = fmt.Sprintf("Reader running (%s)", msg.Duration.Round(time.Millisecond))
		return m, nil

	case stopFinishedMsg:
		m.paused = false
		m.status = "Reader stopped"
		m.pushLog(time.Now(), m.status)
		return m, nil

	case pauseFinishedMsg:
		if msg.Err != nil {
			m.status = "Pause/resume failed: " + msg.Err.Error()
			m.pushLog(time.Now(), m.status)
			return m, nil
		}
		m.paused = msg.Paused
		if m.paused {
			m.status = "Reading paused, session kept"
		} else {
			m.status = "Reader running"
		}
		return m, nil

	case tickMsg:
		m.stats = m.reader.Stats()
		return m, tickCmd()

	case spinner.TickMsg:
		if !m.starting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.filterActive = false
		m.filter.Blur()
		if msg.String() == "esc" {
			m.filter.SetValue("")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *Model) recordRead(ev sdk.ReadEvent) {
	m.totalRead++
	row, ok := m.rows[ev.Tag.EPC]
	if !ok {
		if len(m.order) >= maxRows {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.rows, oldest)
		}
		row = &tagRow{EPC: ev.Tag.EPC, FirstSeen: ev.When}
		m.rows[ev.Tag.EPC] = row
		m.order = append(m.order, ev.Tag.EPC)
		m.status = fmt.Sprintf("New tag: ant=%d epc=%s", ev.Tag.Antenna, trimText(ev.Tag.EPC, 28))
	}
	row.Count++
	row.Antenna = ev.Tag.Antenna
	row.LastSeen = ev.When
	if ev.Tag.TID != "" {
		row.TID = ev.Tag.TID
	}
}

// visibleRows returns the rows matching the filter, most recently seen first.
func (m Model) visibleRows() []tagRow {
	prefix := strings.ToUpper(strings.TrimSpace(m.filter.Value()))
	out := make([]tagRow, 0, len(m.rows))
	for _, epc := range m.order {
		if prefix != "" && !strings.HasPrefix(epc, prefix) {
			continue
		}
		out = append(out, *m.rows[epc])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out
}

func (m *Model) clearReads() {
	m.rows = make(map[string]*tagRow)
	m.order = nil
	m.totalRead = 0
}

func (m *Model) pushLog(at time.Time, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	m.logs = append(m.logs, formatShortTime(at)+" "+line)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func startCmd(r sdk.Reader) tea.Cmd {
	return func() tea.Msg {
		started := time.Now()
		err := r.StartReader(context.Background())
		return startFinishedMsg{Err: err, Duration: time.Since(started)}
	}
}

func stopCmd(r sdk.Reader) tea.Cmd {
	return func() tea.Msg {
		r.StopReader()
		return stopFinishedMsg{}
	}
}

func pauseCmd(p pauser, pause bool) tea.Cmd {
	return func() tea.Msg {
		if pause {
			return pauseFinishedMsg{Paused: true, Err: p.Pause()}
		}
		return pauseFinishedMsg{Paused: false, Err: p.Resume()}
	}
}

func waitForRead(ch <-chan sdk.ReadEvent) tea.Cmd {
	return func() tea.Msg {
		return readMsg{Event: <-ch}
	}
}

func waitForStatus(ch <-chan sdk.StatusEvent) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{Event: <-ch}
	}
}

func waitForErr(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return readerErrMsg{Err: <-ch}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
