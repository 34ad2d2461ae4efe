package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"rfid_llrp_go/sdk"
)

const readBuffer = 1024

// Run opens the live-read monitor for r. The reader is stopped on exit.
func Run(r sdk.Reader) error {
	m := NewModel(r)
	r.AddHandler(sdk.HandlerFunc(m.sink.handle))
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err := program.Run()
	r.StopReader()
	return err
}

// readSink moves reads from the dispatcher goroutine into the program. When
// the UI falls behind, reads are counted and skipped.
type readSink struct {
	ch      chan sdk.ReadEvent
	skipped *atomic.Int64
}

func newReadSink() readSink {
	return readSink{ch: make(chan sdk.ReadEvent, readBuffer), skipped: new(atomic.Int64)}
}

func (s readSink) handle(ev sdk.ReadEvent) error {
	select {
	case s.ch <- ev:
	default:
		s.skipped.Add(1)
	}
	return nil
}
