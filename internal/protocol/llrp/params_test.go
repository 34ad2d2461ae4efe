package llrp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamsMixedTVAndTLV(t *testing.T) {
	var e encoder
	e.tv(ParamAntennaID, func(e *encoder) { e.u16(3) })
	e.tlv(ParamLLRPStatus, func(e *encoder) {
		e.u16(0)
		e.utf8("")
	})
	e.tv(ParamPeakRSSI, func(e *encoder) { e.u8(0xC4) })

	params, err := parseParams(e.buf)
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, ParamAntennaID, params[0].Type)
	assert.Equal(t, []byte{0, 3}, params[0].Value)
	assert.Equal(t, ParamLLRPStatus, params[1].Type)
	assert.Len(t, params[1].Value, 4)
	assert.Equal(t, ParamPeakRSSI, params[2].Type)
	assert.Equal(t, []byte{0xC4}, params[2].Value)
}

func TestParseParamsSkipsUnknownTLV(t *testing.T) {
	var e encoder
	e.tlv(ParamType(1000), func(e *encoder) { e.raw([]byte{1, 2, 3}) })
	e.tv(ParamAntennaID, func(e *encoder) { e.u16(1) })

	params, err := parseParams(e.buf)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, ParamType(1000), params[0].Type)
	assert.Equal(t, ParamAntennaID, params[1].Type)
}

func TestParseParamsErrors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		good int
	}{
		{name: "unknown TV", in: []byte{0x80 | 0x7E, 0}},
		{name: "truncated TV", in: []byte{0x80 | byte(ParamAntennaID), 0}},
		{name: "truncated TLV header", in: []byte{0, 0xF0, 0}},
		{name: "TLV length below header", in: []byte{0, 0xF0, 0, 2}},
		{name: "TLV length past end", in: []byte{0, 0xF0, 0, 9, 1}},
		{name: "good then bad", in: []byte{0x81, 0, 1, 0x81, 0}, good: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params, err := parseParams(tc.in)
			require.Error(t, err)
			assert.Equal(t, ErrMalformed, errors.Cause(err))
			assert.Len(t, params, tc.good)
		})
	}
}

func TestEncoderBackPatchesNestedLengths(t *testing.T) {
	var e encoder
	e.tlv(ParamROBoundarySpec, func(e *encoder) {
		e.tlv(ParamROSpecStartTrigger, func(e *encoder) { e.u8(1) })
	})

	// outer: 4 header + inner (4 header + 1)
	assert.Equal(t, []byte{0x00, 0xB2, 0x00, 0x09, 0x00, 0xB3, 0x00, 0x05, 0x01}, e.buf)
}
