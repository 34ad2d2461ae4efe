package llrp

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// StatusCode is the LLRPStatus code a reader puts in every response.
type StatusCode uint16

const (
	StatusSuccess             StatusCode = 0
	StatusParameterError      StatusCode = 100
	StatusFieldError          StatusCode = 101
	StatusUnexpectedParameter StatusCode = 102
	StatusMissingParameter    StatusCode = 103
	StatusUnsupportedMessage  StatusCode = 109
	StatusUnsupportedVersion  StatusCode = 110
	StatusUnexpectedMessage   StatusCode = 112
	StatusDeviceError         StatusCode = 401
)

// Status is a decoded LLRPStatus parameter.
type Status struct {
	Code        StatusCode
	Description string
}

func (s Status) OK() bool {
	return s.Code == StatusSuccess
}

func (s Status) String() string {
	if s.Description == "" {
		return fmt.Sprintf("status %d", s.Code)
	}
	return fmt.Sprintf("status %d: %s", s.Code, s.Description)
}

// DecodeStatus finds the LLRPStatus parameter in a response or ERROR_MESSAGE body.
func DecodeStatus(body []byte) (Status, error) {
	params, err := parseParams(body)
	for _, p := range params {
		if p.Type == ParamLLRPStatus {
			return decodeStatusParam(p.Value)
		}
	}
	if err != nil {
		return Status{}, err
	}
	return Status{}, errors.Wrap(ErrMalformed, "no LLRPStatus parameter")
}

func decodeStatusParam(v []byte) (Status, error) {
	if err := need(v, 4, "LLRPStatus"); err != nil {
		return Status{}, err
	}
	n := int(binary.BigEndian.Uint16(v[2:]))
	if err := need(v[4:], n, "LLRPStatus description"); err != nil {
		return Status{}, err
	}
	return Status{
		Code:        StatusCode(binary.BigEndian.Uint16(v)),
		Description: string(v[4 : 4+n]),
	}, nil
}

func (s Status) encode(e *encoder) {
	e.tlv(ParamLLRPStatus, func(e *encoder) {
		e.u16(uint16(s.Code))
		e.utf8(s.Description)
	})
}

// NewStatusResponse builds a response or ERROR_MESSAGE carrying only an LLRPStatus.
func NewStatusResponse(t MessageType, id uint32, st Status) Message {
	var e encoder
	st.encode(&e)
	return Message{Type: t, ID: id, Body: e.buf}
}

// ConnectionAttemptStatus is reported once per TCP session, right after accept.
type ConnectionAttemptStatus uint16

const (
	ConnectionSuccess                     ConnectionAttemptStatus = 0
	ConnectionFailedReaderInitiatedExists ConnectionAttemptStatus = 1
	ConnectionFailedClientInitiatedExists ConnectionAttemptStatus = 2
	ConnectionFailedOther                 ConnectionAttemptStatus = 3
	ConnectionAnotherAttempted            ConnectionAttemptStatus = 4
)

func (s ConnectionAttemptStatus) String() string {
	switch s {
	case ConnectionSuccess:
		return "Success"
	case ConnectionFailedReaderInitiatedExists:
		return "Failed_A_Reader_Initiated_Connection_Already_Exists"
	case ConnectionFailedClientInitiatedExists:
		return "Failed_A_Client_Initiated_Connection_Already_Exists"
	case ConnectionFailedOther:
		return "Failed_Reason_Other_Than_A_Connection_Already_Exists"
	case ConnectionAnotherAttempted:
		return "Another_Connection_Attempted"
	default:
		return fmt.Sprintf("ConnectionAttemptStatus(%d)", uint16(s))
	}
}

type AntennaEvent struct {
	Connected bool
	AntennaID uint16
}

type ROSpecEvent struct {
	// Type is 0 for start, 1 for end and 2 for preemption.
	Type     uint8
	ROSpecID uint32
}

// ReaderEvent is the decoded content of a READER_EVENT_NOTIFICATION.
// Event kinds this engine does not act on are skipped.
type ReaderEvent struct {
	ConnectionAttempt *ConnectionAttemptStatus
	ConnectionClosed  bool
	ReaderException   string
	Antenna           *AntennaEvent
	ROSpec            *ROSpecEvent
}

func DecodeReaderEventNotification(body []byte) (ReaderEvent, error) {
	var ev ReaderEvent
	params, err := parseParams(body)
	if err != nil {
		return ev, err
	}
	for _, p := range params {
		if p.Type != ParamReaderEventNotificationData {
			continue
		}
		inner, err := parseParams(p.Value)
		if err != nil {
			return ev, err
		}
		for _, q := range inner {
			if err := ev.apply(q); err != nil {
				return ev, err
			}
		}
	}
	return ev, nil
}

func (ev *ReaderEvent) apply(p Param) error {
	switch p.Type {
	case ParamConnectionAttemptEvent:
		if err := need(p.Value, 2, "ConnectionAttemptEvent"); err != nil {
			return err
		}
		status := ConnectionAttemptStatus(binary.BigEndian.Uint16(p.Value))
		ev.ConnectionAttempt = &status
	case ParamConnectionCloseEvent:
		ev.ConnectionClosed = true
	case ParamReaderExceptionEvent:
		if err := need(p.Value, 2, "ReaderExceptionEvent"); err != nil {
			return err
		}
		n := int(binary.BigEndian.Uint16(p.Value))
		if err := need(p.Value[2:], n, "ReaderExceptionEvent message"); err != nil {
			return err
		}
		ev.ReaderException = string(p.Value[2 : 2+n])
	case ParamAntennaEvent:
		if err := need(p.Value, 3, "AntennaEvent"); err != nil {
			return err
		}
		ev.Antenna = &AntennaEvent{
			Connected: p.Value[0] == 1,
			AntennaID: binary.BigEndian.Uint16(p.Value[1:]),
		}
	case ParamROSpecEvent:
		if err := need(p.Value, 5, "ROSpecEvent"); err != nil {
			return err
		}
		ev.ROSpec = &ROSpecEvent{
			Type:     p.Value[0],
			ROSpecID: binary.BigEndian.Uint32(p.Value[1:]),
		}
	}
	return nil
}

func newReaderEventNotification(event func(e *encoder)) Message {
	var e encoder
	e.tlv(ParamReaderEventNotificationData, func(e *encoder) {
		e.tlv(ParamUTCTimestamp, func(e *encoder) {
			e.u64(uint64(time.Now().UnixMicro()))
		})
		event(e)
	})
	return Message{Type: MsgReaderEventNotification, Body: e.buf}
}

// NewConnectionAttemptEvent is the first message a reader sends on a new session.
func NewConnectionAttemptEvent(status ConnectionAttemptStatus) Message {
	return newReaderEventNotification(func(e *encoder) {
		e.tlv(ParamConnectionAttemptEvent, func(e *encoder) {
			e.u16(uint16(status))
		})
	})
}

func NewReaderExceptionEvent(message string) Message {
	return newReaderEventNotification(func(e *encoder) {
		e.tlv(ParamReaderExceptionEvent, func(e *encoder) {
			e.utf8(message)
		})
	})
}
