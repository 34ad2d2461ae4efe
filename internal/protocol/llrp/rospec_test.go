package llrp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventorySpec() ROSpec {
	return ROSpec{
		ID:           101,
		CurrentState: ROSpecStateDisabled,
		Boundary: ROBoundarySpec{
			StartTrigger: ROStartTriggerNull,
			StopTrigger:  ROStopTriggerNull,
		},
		AISpecs: []AISpec{{
			AntennaIDs:  []uint16{1, 2},
			StopTrigger: AIStopTriggerNull,
			InventoryParameterSpecs: []InventoryParameterSpec{
				{ID: 1, Protocol: AirProtoEPCGlobalClass1Gen2},
			},
		}},
		ReportSpec: &ROReportSpec{
			Trigger: ROReportUponNTagsOrEndOfROSpec,
			N:       1,
			ContentSelector: TagReportContentSelector{
				EnableAntennaID: true,
				C1G2EPCMemorySelector: &C1G2EPCMemorySelector{
					EnableCRC:    true,
					EnablePCBits: true,
				},
			},
		},
	}
}

func TestAddROSpecRoundTrip(t *testing.T) {
	spec := inventorySpec()
	msg := NewAddROSpec(spec)
	assert.Equal(t, MsgAddROSpec, msg.Type)

	got, err := DecodeAddROSpec(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, spec, got)
}

func TestContentSelectorFlags(t *testing.T) {
	assert.Equal(t, uint16(0x1000), TagReportContentSelector{EnableAntennaID: true}.flags())
	assert.Equal(t, uint16(0x8000), TagReportContentSelector{EnableROSpecID: true}.flags())
	assert.Equal(t, uint16(0x0040), TagReportContentSelector{EnableAccessSpecID: true}.flags())

	all := selectorFromFlags(0xFFC0)
	assert.Equal(t, uint16(0xFFC0), all.flags())
}

func TestEPCMemorySelectorByte(t *testing.T) {
	msg := NewAddROSpec(inventorySpec())
	// C1G2EPCMemorySelector is the last parameter: 4-byte header then the flags byte.
	assert.Equal(t, byte(0xC0), msg.Body[len(msg.Body)-1])
	assert.Equal(t, []byte{0x01, 0x5C, 0x00, 0x05}, msg.Body[len(msg.Body)-5:len(msg.Body)-1])
}

func TestROSpecCommand(t *testing.T) {
	for _, typ := range []MessageType{MsgDeleteROSpec, MsgStartROSpec, MsgStopROSpec, MsgEnableROSpec, MsgDisableROSpec} {
		msg := NewROSpecCommand(typ, 101)
		assert.Equal(t, typ, msg.Type)
		id, err := DecodeROSpecID(msg.Body)
		require.NoError(t, err)
		assert.Equal(t, uint32(101), id)
	}

	_, err := DecodeROSpecID([]byte{0, 1})
	assert.Equal(t, ErrMalformed, errors.Cause(err))
}

func TestDecodeAddROSpecWithoutSpec(t *testing.T) {
	_, err := DecodeAddROSpec(nil)
	require.Error(t, err)
	assert.Equal(t, ErrMalformed, errors.Cause(err))
}
