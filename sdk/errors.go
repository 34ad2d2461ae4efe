package sdk

import (
	"fmt"

	"github.com/pkg/errors"

	"rfid_llrp_go/internal/reader"
)

var (
	ErrConnection         = reader.ErrConnection
	ErrNotConnected       = reader.ErrNotConnected
	ErrTransactionTimeout = reader.ErrTransactionTimeout
	ErrProtocolDecode     = reader.ErrProtocolDecode
	ErrReaderStartup      = errors.New("reader startup failed")
)

type (
	ConnectionError = reader.ConnectionError
	StatusError     = reader.StatusError
	DecodeError     = reader.DecodeError
)

// Lifecycle steps, as reported in StartupError and TeardownError.
const (
	StepConnect   = "connect"
	StepPreDelete = "delete-rospec (pre-clean)"
	StepConfigure = "set-reader-config"
	StepAdd       = "add-rospec"
	StepEnable    = "enable-rospec"
	StepStart     = "start-rospec"
	StepStop      = "stop-rospec"
	StepDelete    = "delete-rospec"
	StepResume    = "resume"
)

// StartupError aborts StartReader. Err is the failure of Step.
type StartupError struct {
	Step string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("reader startup failed at %s: %v", e.Step, e.Err)
}

func (e *StartupError) Cause() error  { return e.Err }
func (e *StartupError) Unwrap() error { return e.Err }

func (e *StartupError) Is(target error) bool {
	return target == ErrReaderStartup
}

// TeardownError is published on Errors when a BestEffortTeardown step fails.
type TeardownError struct {
	Step string
	Err  error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown step %s failed: %v", e.Step, e.Err)
}

func (e *TeardownError) Cause() error  { return e.Err }
func (e *TeardownError) Unwrap() error { return e.Err }

// DeviceError carries an asynchronous error the reader reported on its own.
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string {
	return "reader reported: " + e.Message
}
