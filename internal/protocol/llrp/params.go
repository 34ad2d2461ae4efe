package llrp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ParamType is an LLRP parameter type. Values below 128 are TV encoded.
type ParamType uint16

// TV parameters (1-bit marker + 7-bit type, fixed length value).
const (
	ParamAntennaID                 ParamType = 1
	ParamFirstSeenUTC              ParamType = 2
	ParamFirstSeenUptime           ParamType = 3
	ParamLastSeenUTC               ParamType = 4
	ParamLastSeenUptime            ParamType = 5
	ParamPeakRSSI                  ParamType = 6
	ParamChannelIndex              ParamType = 7
	ParamTagSeenCount              ParamType = 8
	ParamROSpecID                  ParamType = 9
	ParamInventoryParameterSpecID  ParamType = 10
	ParamC1G2CRC                   ParamType = 11
	ParamC1G2PC                    ParamType = 12
	ParamEPC96                     ParamType = 13
	ParamSpecIndex                 ParamType = 14
	ParamClientRequestOpSpecResult ParamType = 15
	ParamAccessSpecID              ParamType = 16
	ParamOpSpecID                  ParamType = 17
	ParamC1G2SingulationDetails    ParamType = 18
)

// TLV parameters (6 reserved bits + 10-bit type + 16-bit length).
const (
	ParamUTCTimestamp                ParamType = 128
	ParamUptime                      ParamType = 129
	ParamROSpec                      ParamType = 177
	ParamROBoundarySpec              ParamType = 178
	ParamROSpecStartTrigger          ParamType = 179
	ParamROSpecStopTrigger           ParamType = 182
	ParamAISpec                      ParamType = 183
	ParamAISpecStopTrigger           ParamType = 184
	ParamInventoryParameterSpec      ParamType = 186
	ParamAntennaConfiguration        ParamType = 222
	ParamRFReceiver                  ParamType = 223
	ParamRFTransmitter               ParamType = 224
	ParamROReportSpec                ParamType = 237
	ParamTagReportContentSelector    ParamType = 238
	ParamTagReportData               ParamType = 240
	ParamEPCData                     ParamType = 241
	ParamReaderEventNotificationData ParamType = 246
	ParamROSpecEvent                 ParamType = 249
	ParamReaderExceptionEvent        ParamType = 252
	ParamAntennaEvent                ParamType = 255
	ParamConnectionAttemptEvent      ParamType = 256
	ParamConnectionCloseEvent        ParamType = 257
	ParamLLRPStatus                  ParamType = 287
	ParamC1G2EPCMemorySelector       ParamType = 348
)

// tvLengths holds the value size of every TV parameter; a TV parameter
// carries no length field, so an unknown one cannot be skipped.
var tvLengths = map[ParamType]int{
	ParamAntennaID:                 2,
	ParamFirstSeenUTC:              8,
	ParamFirstSeenUptime:           8,
	ParamLastSeenUTC:               8,
	ParamLastSeenUptime:            8,
	ParamPeakRSSI:                  1,
	ParamChannelIndex:              2,
	ParamTagSeenCount:              2,
	ParamROSpecID:                  4,
	ParamInventoryParameterSpecID:  2,
	ParamC1G2CRC:                   2,
	ParamC1G2PC:                    2,
	ParamEPC96:                     12,
	ParamSpecIndex:                 2,
	ParamClientRequestOpSpecResult: 2,
	ParamAccessSpecID:              4,
	ParamOpSpecID:                  2,
	ParamC1G2SingulationDetails:    4,
}

// Param is one parameter with its header stripped.
type Param struct {
	Type  ParamType
	Value []byte
}

// parseParams splits b into consecutive parameters. On error it returns
// the parameters decoded before the failure.
func parseParams(b []byte) ([]Param, error) {
	params := make([]Param, 0, 4)
	for len(b) > 0 {
		if b[0]&0x80 != 0 {
			t := ParamType(b[0] & 0x7F)
			n, ok := tvLengths[t]
			if !ok {
				return params, errors.Wrapf(ErrMalformed, "unknown TV parameter %d", t)
			}
			if len(b) < 1+n {
				return params, errors.Wrapf(ErrMalformed, "TV parameter %d truncated", t)
			}
			params = append(params, Param{Type: t, Value: b[1 : 1+n]})
			b = b[1+n:]
			continue
		}

		if len(b) < 4 {
			return params, errors.Wrap(ErrMalformed, "TLV header truncated")
		}
		t := ParamType(binary.BigEndian.Uint16(b) & 0x3FF)
		n := int(binary.BigEndian.Uint16(b[2:]))
		if n < 4 || n > len(b) {
			return params, errors.Wrapf(ErrMalformed, "parameter %d has invalid length %d", t, n)
		}
		params = append(params, Param{Type: t, Value: b[4:n]})
		b = b[n:]
	}
	return params, nil
}

func need(b []byte, n int, what string) error {
	if len(b) < n {
		return errors.Wrapf(ErrMalformed, "%s: need %d bytes, have %d", what, n, len(b))
	}
	return nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u16(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *encoder) u64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

func (e *encoder) raw(p []byte) {
	e.buf = append(e.buf, p...)
}

func (e *encoder) utf8(s string) {
	e.u16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

// tlv writes a TLV parameter, back-patching the length once body is written.
func (e *encoder) tlv(t ParamType, body func(e *encoder)) {
	start := len(e.buf)
	e.u16(uint16(t) & 0x3FF)
	e.u16(0)
	body(e)
	binary.BigEndian.PutUint16(e.buf[start+2:], uint16(len(e.buf)-start))
}

func (e *encoder) tv(t ParamType, body func(e *encoder)) {
	e.u8(0x80 | uint8(t))
	body(e)
}

func boolBit(v bool, shift uint) uint16 {
	if v {
		return 1 << shift
	}
	return 0
}
