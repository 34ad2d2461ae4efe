package sdk

import "rfid_llrp_go/internal/protocol/llrp"

const (
	// ROSpecID identifies the single inventory ROSpec a client owns.
	ROSpecID uint32 = 101
	// InventoryParameterSpecID is the only inventory parameter spec in the ROSpec.
	InventoryParameterSpecID uint16 = 1

	// receiverSensitivityPercent is applied to every active antenna.
	receiverSensitivityPercent = 100
)

// BuildROSpec assembles the continuous inventory ROSpec for antennas, in order.
// An empty antenna set yields an empty antenna list.
func BuildROSpec(antennas []AntennaConfig) llrp.ROSpec {
	ids := make([]uint16, 0, len(antennas))
	for _, a := range antennas {
		ids = append(ids, uint16(a.Number))
	}

	return llrp.ROSpec{
		ID:           ROSpecID,
		Priority:     0,
		CurrentState: llrp.ROSpecStateDisabled,
		Boundary: llrp.ROBoundarySpec{
			StartTrigger: llrp.ROStartTriggerNull,
			StopTrigger:  llrp.ROStopTriggerNull,
		},
		AISpecs: []llrp.AISpec{{
			AntennaIDs:  ids,
			StopTrigger: llrp.AIStopTriggerNull,
			InventoryParameterSpecs: []llrp.InventoryParameterSpec{{
				ID:       InventoryParameterSpecID,
				Protocol: llrp.AirProtoEPCGlobalClass1Gen2,
			}},
		}},
		ReportSpec: &llrp.ROReportSpec{
			Trigger:         llrp.ROReportUponNTagsOrEndOfROSpec,
			N:               1,
			ContentSelector: reportContentSelector(),
		},
	}
}

// reportContentSelector keeps reports down to EPC, antenna and spec ids.
func reportContentSelector() llrp.TagReportContentSelector {
	return llrp.TagReportContentSelector{
		EnableAntennaID:                true,
		EnableInventoryParameterSpecID: true,
		EnableAccessSpecID:             true,
		C1G2EPCMemorySelector: &llrp.C1G2EPCMemorySelector{
			EnableCRC:    false,
			EnablePCBits: false,
		},
	}
}

// BuildReaderConfig resets the reader to factory defaults and sets receiver
// sensitivity and transmit power on every active antenna. The register
// fields are uint16, so units from out-of-range percentages wrap.
func BuildReaderConfig(antennas []AntennaConfig) llrp.ReaderConfig {
	cfg := llrp.ReaderConfig{ResetToFactoryDefault: true}
	for _, a := range antennas {
		cfg.AntennaConfigurations = append(cfg.AntennaConfigurations, llrp.AntennaConfiguration{
			AntennaID: uint16(a.Number),
			RFReceiver: &llrp.RFReceiver{
				Sensitivity: uint16(ToSensitivityUnits(receiverSensitivityPercent)),
			},
			RFTransmitter: &llrp.RFTransmitter{
				HopTableID:    0,
				ChannelIndex:  0,
				TransmitPower: uint16(ToPowerUnits(a.PowerPercent)),
			},
		})
	}
	return cfg
}
