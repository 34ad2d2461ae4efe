package sdk

import "context"

// State is the lifecycle position of one reader session.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateConfigured
	StateSpecLoaded
	StateSpecEnabled
	StateRunning
	// StateStopped keeps the connection open with the ROSpec stopped.
	StateStopped
)

var stateNames = [...]string{
	StateIdle:        "Idle",
	StateConnected:   "Connected",
	StateConfigured:  "Configured",
	StateSpecLoaded:  "SpecLoaded",
	StateSpecEnabled: "SpecEnabled",
	StateRunning:     "Running",
	StateStopped:     "Stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reader is the contract every backend implements.
type Reader interface {
	// StartReader brings the reader from idle to reporting reads.
	StartReader(ctx context.Context) error
	// StopReader is best-effort and never fails.
	StopReader()
	AddHandler(h Handler)
	Endpoint() Endpoint
	State() State
	Stats() Stats
	Statuses() <-chan StatusEvent
	Errors() <-chan error
}
