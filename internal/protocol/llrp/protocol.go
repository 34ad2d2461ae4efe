package llrp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MessageType is the 10-bit LLRP message type carried in every header.
type MessageType uint16

// Message types from LLRP 1.0.1 used by the reader-control engine.
const (
	MsgSetReaderConfig         MessageType = 3
	MsgCloseConnectionResponse MessageType = 4
	MsgSetReaderConfigResponse MessageType = 13
	MsgCloseConnection         MessageType = 14
	MsgAddROSpec               MessageType = 20
	MsgDeleteROSpec            MessageType = 21
	MsgStartROSpec             MessageType = 22
	MsgStopROSpec              MessageType = 23
	MsgEnableROSpec            MessageType = 24
	MsgDisableROSpec           MessageType = 25
	MsgAddROSpecResponse       MessageType = 30
	MsgDeleteROSpecResponse    MessageType = 31
	MsgStartROSpecResponse     MessageType = 32
	MsgStopROSpecResponse      MessageType = 33
	MsgEnableROSpecResponse    MessageType = 34
	MsgDisableROSpecResponse   MessageType = 35
	MsgROAccessReport          MessageType = 61
	MsgKeepalive               MessageType = 62
	MsgReaderEventNotification MessageType = 63
	MsgKeepaliveAck            MessageType = 72
	MsgErrorMessage            MessageType = 100
)

const (
	// Version is the protocol version written into outgoing headers (LLRP 1.0.1).
	Version = 1
	// DefaultPort is the IANA port for LLRP over TCP.
	DefaultPort = 5084

	headerLen     = 10
	maxMessageLen = 1 << 20
)

// ErrMalformed is the cause of every decoding failure in this package.
var ErrMalformed = errors.New("malformed llrp data")

var responseTypes = map[MessageType]MessageType{
	MsgSetReaderConfig: MsgSetReaderConfigResponse,
	MsgCloseConnection: MsgCloseConnectionResponse,
	MsgAddROSpec:       MsgAddROSpecResponse,
	MsgDeleteROSpec:    MsgDeleteROSpecResponse,
	MsgStartROSpec:     MsgStartROSpecResponse,
	MsgStopROSpec:      MsgStopROSpecResponse,
	MsgEnableROSpec:    MsgEnableROSpecResponse,
	MsgDisableROSpec:   MsgDisableROSpecResponse,
}

var typeNames = map[MessageType]string{
	MsgSetReaderConfig:         "SET_READER_CONFIG",
	MsgCloseConnectionResponse: "CLOSE_CONNECTION_RESPONSE",
	MsgSetReaderConfigResponse: "SET_READER_CONFIG_RESPONSE",
	MsgCloseConnection:         "CLOSE_CONNECTION",
	MsgAddROSpec:               "ADD_ROSPEC",
	MsgDeleteROSpec:            "DELETE_ROSPEC",
	MsgStartROSpec:             "START_ROSPEC",
	MsgStopROSpec:              "STOP_ROSPEC",
	MsgEnableROSpec:            "ENABLE_ROSPEC",
	MsgDisableROSpec:           "DISABLE_ROSPEC",
	MsgAddROSpecResponse:       "ADD_ROSPEC_RESPONSE",
	MsgDeleteROSpecResponse:    "DELETE_ROSPEC_RESPONSE",
	MsgStartROSpecResponse:     "START_ROSPEC_RESPONSE",
	MsgStopROSpecResponse:      "STOP_ROSPEC_RESPONSE",
	MsgEnableROSpecResponse:    "ENABLE_ROSPEC_RESPONSE",
	MsgDisableROSpecResponse:   "DISABLE_ROSPEC_RESPONSE",
	MsgROAccessReport:          "RO_ACCESS_REPORT",
	MsgKeepalive:               "KEEPALIVE",
	MsgReaderEventNotification: "READER_EVENT_NOTIFICATION",
	MsgKeepaliveAck:            "KEEPALIVE_ACK",
	MsgErrorMessage:            "ERROR_MESSAGE",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", uint16(t))
}

// ResponseType returns the reply type a reader sends for request type t.
func ResponseType(t MessageType) (MessageType, bool) {
	r, ok := responseTypes[t]
	return r, ok
}

// Message is one decoded LLRP message.
// Header format: Rsvd(3) + Ver(3) + Type(10) + Length(32) + ID(32) + Body(n)
type Message struct {
	Version uint8
	Type    MessageType
	ID      uint32
	Body    []byte
}

// Encode builds the wire bytes for m. A zero Version is written as Version.
func (m Message) Encode() []byte {
	version := m.Version
	if version == 0 {
		version = Version
	}
	out := make([]byte, headerLen, headerLen+len(m.Body))
	binary.BigEndian.PutUint16(out[0:], uint16(version&0x07)<<10|uint16(m.Type)&0x3FF)
	binary.BigEndian.PutUint32(out[2:], uint32(headerLen+len(m.Body)))
	binary.BigEndian.PutUint32(out[6:], m.ID)
	return append(out, m.Body...)
}

// ReadMessage reads exactly one message from a byte stream.
// A length field that cannot describe a valid message leaves the stream
// unsynchronized, so callers should treat ErrMalformed here as fatal.
func ReadMessage(r io.Reader) (Message, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, err
	}

	word := binary.BigEndian.Uint16(hdr[0:])
	length := binary.BigEndian.Uint32(hdr[2:])
	if length < headerLen || length > maxMessageLen {
		return Message{}, errors.Wrapf(ErrMalformed, "message length %d", length)
	}

	body := make([]byte, length-headerLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Message{}, errors.Wrap(err, "read message body")
	}

	return Message{
		Version: uint8(word>>10) & 0x07,
		Type:    MessageType(word & 0x3FF),
		ID:      binary.BigEndian.Uint32(hdr[6:]),
		Body:    body,
	}, nil
}

// NewKeepaliveAck acknowledges the reader keepalive carrying id.
func NewKeepaliveAck(id uint32) Message {
	return Message{Type: MsgKeepaliveAck, ID: id}
}

// NewKeepalive is what a reader sends to probe the client.
func NewKeepalive(id uint32) Message {
	return Message{Type: MsgKeepalive, ID: id}
}
