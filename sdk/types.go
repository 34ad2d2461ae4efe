package sdk

import (
	"net"
	"strconv"
	"time"

	"rfid_llrp_go/internal/protocol/llrp"
)

const (
	ProtocolLLRP = "llrp"
	ProtocolBRI  = "bri"
)

// Endpoint is a public network address of a reader. Port 0 means the
// default port of the reader's protocol.
type Endpoint struct {
	Host string
	Port int
}

// Address fills a zero port with the LLRP default. Other backends resolve
// their own default before exposing an Endpoint.
func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = llrp.DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

func (e Endpoint) String() string {
	return e.Address()
}

// AntennaConfig is one active antenna and its transmit power in percent.
// Number is device-assigned and positive; PowerPercent is 0-100 by contract
// and is not clamped.
type AntennaConfig struct {
	Number       int
	PowerPercent int
}

// ReaderConfig is everything needed to run one reader.
type ReaderConfig struct {
	Endpoint Endpoint
	Protocol string
	// Antennas is the ordered set of active antennas.
	Antennas       []AntennaConfig
	ConnectTimeout time.Duration
}

// DefaultConnectTimeout bounds session establishment when ReaderConfig leaves it zero.
const DefaultConnectTimeout = 2000 * time.Millisecond

func (c ReaderConfig) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

func cloneReaderConfig(cfg ReaderConfig) ReaderConfig {
	out := cfg
	out.Antennas = append([]AntennaConfig(nil), cfg.Antennas...)
	return out
}

// Tag is one observed EPC. EPC is upper-case hex. TID is only filled by
// backends that report the tag identifier memory.
type Tag struct {
	EPC     string
	Antenna int
	TID     string
}

// ReadEvent is delivered to every registered Handler, once per reported tag.
type ReadEvent struct {
	Tag    Tag
	Reader Endpoint
	When   time.Time
}

// StatusEvent is a lightweight progress signal from the lifecycle.
type StatusEvent struct {
	When    time.Time
	Message string
}

// Stats captures current session counters.
type Stats struct {
	State        State
	SessionID    string
	Reads        uint64
	Dropped      uint64
	DecodeErrors uint64
	LastTagEPC   string
}
