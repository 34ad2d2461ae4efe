package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_llrp_go/internal/protocol/llrp"
)

func TestBuildROSpecAntennaOrder(t *testing.T) {
	spec := BuildROSpec([]AntennaConfig{{Number: 1, PowerPercent: 80}, {Number: 2, PowerPercent: 50}})

	assert.Equal(t, ROSpecID, spec.ID)
	assert.Equal(t, uint8(0), spec.Priority)
	assert.Equal(t, llrp.ROSpecStateDisabled, spec.CurrentState)
	assert.Equal(t, llrp.ROStartTriggerNull, spec.Boundary.StartTrigger)
	assert.Equal(t, llrp.ROStopTriggerNull, spec.Boundary.StopTrigger)

	require.Len(t, spec.AISpecs, 1)
	ai := spec.AISpecs[0]
	assert.Equal(t, []uint16{1, 2}, ai.AntennaIDs)
	assert.Equal(t, llrp.AIStopTriggerNull, ai.StopTrigger)
	assert.Equal(t, []llrp.InventoryParameterSpec{{ID: 1, Protocol: llrp.AirProtoEPCGlobalClass1Gen2}}, ai.InventoryParameterSpecs)

	spec = BuildROSpec([]AntennaConfig{{Number: 4}, {Number: 2}, {Number: 3}})
	assert.Equal(t, []uint16{4, 2, 3}, spec.AISpecs[0].AntennaIDs)
}

func TestBuildROSpecEmptyAntennaSet(t *testing.T) {
	spec := BuildROSpec(nil)
	require.Len(t, spec.AISpecs, 1)
	assert.Empty(t, spec.AISpecs[0].AntennaIDs)

	// still encodes as a valid ADD_ROSPEC
	decoded, err := llrp.DecodeAddROSpec(llrp.NewAddROSpec(spec).Body)
	require.NoError(t, err)
	assert.Empty(t, decoded.AISpecs[0].AntennaIDs)
}

func TestBuildROSpecReportPolicy(t *testing.T) {
	rs := BuildROSpec(nil).ReportSpec
	require.NotNil(t, rs)
	assert.Equal(t, llrp.ROReportUponNTagsOrEndOfROSpec, rs.Trigger)
	assert.Equal(t, uint16(1), rs.N)

	sel := rs.ContentSelector
	assert.True(t, sel.EnableAntennaID)
	assert.True(t, sel.EnableInventoryParameterSpecID)
	assert.True(t, sel.EnableAccessSpecID)
	assert.False(t, sel.EnableROSpecID)
	assert.False(t, sel.EnableSpecIndex)
	assert.False(t, sel.EnableChannelIndex)
	assert.False(t, sel.EnablePeakRSSI)
	assert.False(t, sel.EnableFirstSeenTimestamp)
	assert.False(t, sel.EnableLastSeenTimestamp)
	assert.False(t, sel.EnableTagSeenCount)
	require.NotNil(t, sel.C1G2EPCMemorySelector)
	assert.False(t, sel.C1G2EPCMemorySelector.EnableCRC)
	assert.False(t, sel.C1G2EPCMemorySelector.EnablePCBits)
}

func TestBuildReaderConfig(t *testing.T) {
	cfg := BuildReaderConfig([]AntennaConfig{{Number: 1, PowerPercent: 80}, {Number: 2, PowerPercent: 50}})

	assert.True(t, cfg.ResetToFactoryDefault)
	require.Len(t, cfg.AntennaConfigurations, 2)

	first, second := cfg.AntennaConfigurations[0], cfg.AntennaConfigurations[1]
	assert.Equal(t, uint16(1), first.AntennaID)
	assert.Equal(t, uint16(204), first.RFTransmitter.TransmitPower)
	assert.Equal(t, uint16(128), first.RFReceiver.Sensitivity)
	assert.Equal(t, uint16(2), second.AntennaID)
	assert.Equal(t, uint16(127), second.RFTransmitter.TransmitPower)
	assert.Equal(t, uint16(128), second.RFReceiver.Sensitivity)
	assert.Zero(t, first.RFTransmitter.HopTableID)
	assert.Zero(t, first.RFTransmitter.ChannelIndex)
}
