package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"rfid_llrp_go/sdk"
)

type screen int

const (
	screenReads screen = iota
	screenLogs
	screenHelp
)

const (
	maxLogs = 500
	maxRows = 2000
)

// pauser is implemented by backends that can stop the report flow while
// keeping the session open.
type pauser interface {
	Pause() error
	Resume() error
}

// tagRow aggregates every read of one EPC.
type tagRow struct {
	EPC       string
	TID       string
	Antenna   int
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

type readMsg struct {
	Event sdk.ReadEvent
}

type statusMsg struct {
	Event sdk.StatusEvent
}

type readerErrMsg struct {
	Err error
}

type startFinishedMsg struct {
	Err      error
	Duration time.Duration
}

type stopFinishedMsg struct{}

type pauseFinishedMsg struct {
	Paused bool
	Err    error
}

type tickMsg time.Time

// Model is the app state.
type Model struct {
	reader sdk.Reader
	sink   readSink

	activeScreen screen
	starting     bool
	paused       bool
	spinner      spinner.Model

	filter       textinput.Model
	filterActive bool

	rows      map[string]*tagRow
	order     []string
	totalRead int
	logs      []string
	logScroll int
	status    string
	stats     sdk.Stats

	width  int
	height int
}
