package llrp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epc96 = []byte{0xE2, 0x00, 0x68, 0x11, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x12, 0xAB}

func TestROAccessReportRoundTrip(t *testing.T) {
	in := []TagReportData{
		{EPC: epc96, AntennaID: 2, HasAntennaID: true, ROSpecID: 101},
		{EPC: []byte{0xAB, 0xCD}, PeakRSSI: -60, HasPeakRSSI: true},
	}

	tags, entryErrs, err := DecodeROAccessReport(NewROAccessReport(in).Body)
	require.NoError(t, err)
	assert.Empty(t, entryErrs)
	require.Len(t, tags, 2)

	assert.Equal(t, "E200681100000000000012AB", tags[0].EPCHex())
	assert.True(t, tags[0].HasAntennaID)
	assert.Equal(t, uint16(2), tags[0].AntennaID)
	assert.Equal(t, uint32(101), tags[0].ROSpecID)

	assert.Equal(t, "ABCD", tags[1].EPCHex())
	assert.False(t, tags[1].HasAntennaID)
	assert.True(t, tags[1].HasPeakRSSI)
	assert.Equal(t, int8(-60), tags[1].PeakRSSI)
}

func TestROAccessReportEntryWithoutEPC(t *testing.T) {
	var e encoder
	e.tlv(ParamTagReportData, func(e *encoder) {
		e.tv(ParamAntennaID, func(e *encoder) { e.u16(1) })
	})
	e.tlv(ParamTagReportData, func(e *encoder) {
		e.tv(ParamEPC96, func(e *encoder) { e.raw(epc96) })
	})

	tags, entryErrs, err := DecodeROAccessReport(e.buf)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.Len(t, entryErrs, 1)
	assert.Equal(t, ErrMalformed, errors.Cause(entryErrs[0]))
}

func TestROAccessReportEntryIndexSkipsOtherParams(t *testing.T) {
	var e encoder
	e.tlv(ParamUptime, func(e *encoder) { e.u64(42) })
	e.tlv(ParamTagReportData, func(e *encoder) {
		e.tv(ParamEPC96, func(e *encoder) { e.raw(epc96) })
	})
	e.tlv(ParamTagReportData, func(e *encoder) {
		e.tv(ParamAntennaID, func(e *encoder) { e.u16(1) })
	})

	tags, entryErrs, err := DecodeROAccessReport(e.buf)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.Len(t, entryErrs, 1)
	assert.Contains(t, entryErrs[0].Error(), "tag report entry 1")
}

func TestROAccessReportTruncatedKeepsDecodedEntries(t *testing.T) {
	body := NewROAccessReport([]TagReportData{{EPC: epc96}, {EPC: epc96}}).Body
	tags, _, err := DecodeROAccessReport(body[:len(body)-3])

	require.Error(t, err)
	assert.Equal(t, ErrMalformed, errors.Cause(err))
	assert.Len(t, tags, 1)
}

func TestEPCDataOddBitLength(t *testing.T) {
	var e encoder
	e.tlv(ParamTagReportData, func(e *encoder) {
		e.tlv(ParamEPCData, func(e *encoder) {
			e.u16(12)
			e.raw([]byte{0x0A, 0xB0})
		})
	})

	tags, entryErrs, err := DecodeROAccessReport(e.buf)
	require.NoError(t, err)
	assert.Empty(t, entryErrs)
	require.Len(t, tags, 1)
	assert.Equal(t, "0AB0", tags[0].EPCHex())
}
