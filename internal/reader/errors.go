package reader

import (
	"fmt"

	"github.com/pkg/errors"

	"rfid_llrp_go/internal/protocol/llrp"
)

var (
	ErrConnection         = errors.New("reader connection failed")
	ErrNotConnected       = errors.New("reader not connected")
	ErrTransactionTimeout = errors.New("transaction timeout")
	ErrRejected           = errors.New("connection rejected by reader")
	ErrProtocolDecode     = errors.New("protocol decode failed")
)

// ConnectionError reports a session that could not be opened.
type ConnectionError struct {
	Endpoint Endpoint
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint.Address(), e.Err)
}

func (e *ConnectionError) Cause() error  { return e.Err }
func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// StatusError is a correlated reply whose LLRPStatus was not Success.
type StatusError struct {
	Request     llrp.MessageType
	Code        llrp.StatusCode
	Description string
}

func (e *StatusError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s rejected with status %d", e.Request, e.Code)
	}
	return fmt.Sprintf("%s rejected with status %d: %s", e.Request, e.Code, e.Description)
}

// DecodeError wraps a payload that could not be decoded.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Cause() error  { return e.Err }
func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool {
	return target == ErrProtocolDecode
}
