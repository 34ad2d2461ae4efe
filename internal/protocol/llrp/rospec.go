package llrp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ROSpecState is the reader-side lifecycle state of an ROSpec.
// LLRP names the enabled-but-idle state "Inactive".
type ROSpecState uint8

const (
	ROSpecStateDisabled ROSpecState = 0
	ROSpecStateInactive ROSpecState = 1
	ROSpecStateActive   ROSpecState = 2
)

type ROSpecStartTriggerType uint8

const (
	ROStartTriggerNull      ROSpecStartTriggerType = 0
	ROStartTriggerImmediate ROSpecStartTriggerType = 1
	ROStartTriggerPeriodic  ROSpecStartTriggerType = 2
	ROStartTriggerGPI       ROSpecStartTriggerType = 3
)

type ROSpecStopTriggerType uint8

const (
	ROStopTriggerNull     ROSpecStopTriggerType = 0
	ROStopTriggerDuration ROSpecStopTriggerType = 1
	ROStopTriggerGPI      ROSpecStopTriggerType = 2
)

type AISpecStopTriggerType uint8

const (
	AIStopTriggerNull           AISpecStopTriggerType = 0
	AIStopTriggerDuration       AISpecStopTriggerType = 1
	AIStopTriggerGPI            AISpecStopTriggerType = 2
	AIStopTriggerTagObservation AISpecStopTriggerType = 3
)

type AirProtocol uint8

const (
	AirProtoUnspecified         AirProtocol = 0
	AirProtoEPCGlobalClass1Gen2 AirProtocol = 1
)

type ROReportTriggerType uint8

const (
	ROReportNone                   ROReportTriggerType = 0
	ROReportUponNTagsOrEndOfAISpec ROReportTriggerType = 1
	ROReportUponNTagsOrEndOfROSpec ROReportTriggerType = 2
)

// ROSpec is a Reader Operation specification.
type ROSpec struct {
	ID           uint32
	Priority     uint8
	CurrentState ROSpecState
	Boundary     ROBoundarySpec
	AISpecs      []AISpec
	ReportSpec   *ROReportSpec
}

type ROBoundarySpec struct {
	StartTrigger ROSpecStartTriggerType
	StopTrigger  ROSpecStopTriggerType
	StopDuration uint32
}

// AISpec is an antenna inventory spec. An AntennaIDs entry of 0 means all antennas.
type AISpec struct {
	AntennaIDs              []uint16
	StopTrigger             AISpecStopTriggerType
	StopDuration            uint32
	InventoryParameterSpecs []InventoryParameterSpec
}

type InventoryParameterSpec struct {
	ID       uint16
	Protocol AirProtocol
}

type ROReportSpec struct {
	Trigger         ROReportTriggerType
	N               uint16
	ContentSelector TagReportContentSelector
}

// TagReportContentSelector chooses which optional fields a TagReportData carries.
type TagReportContentSelector struct {
	EnableROSpecID                 bool
	EnableSpecIndex                bool
	EnableInventoryParameterSpecID bool
	EnableAntennaID                bool
	EnableChannelIndex             bool
	EnablePeakRSSI                 bool
	EnableFirstSeenTimestamp       bool
	EnableLastSeenTimestamp        bool
	EnableTagSeenCount             bool
	EnableAccessSpecID             bool
	C1G2EPCMemorySelector          *C1G2EPCMemorySelector
}

type C1G2EPCMemorySelector struct {
	EnableCRC    bool
	EnablePCBits bool
}

func (s ROSpec) encode(e *encoder) {
	e.tlv(ParamROSpec, func(e *encoder) {
		e.u32(s.ID)
		e.u8(s.Priority)
		e.u8(uint8(s.CurrentState))
		s.Boundary.encode(e)
		for _, ai := range s.AISpecs {
			ai.encode(e)
		}
		if s.ReportSpec != nil {
			s.ReportSpec.encode(e)
		}
	})
}

func (b ROBoundarySpec) encode(e *encoder) {
	e.tlv(ParamROBoundarySpec, func(e *encoder) {
		e.tlv(ParamROSpecStartTrigger, func(e *encoder) {
			e.u8(uint8(b.StartTrigger))
		})
		e.tlv(ParamROSpecStopTrigger, func(e *encoder) {
			e.u8(uint8(b.StopTrigger))
			e.u32(b.StopDuration)
		})
	})
}

func (a AISpec) encode(e *encoder) {
	e.tlv(ParamAISpec, func(e *encoder) {
		e.u16(uint16(len(a.AntennaIDs)))
		for _, id := range a.AntennaIDs {
			e.u16(id)
		}
		e.tlv(ParamAISpecStopTrigger, func(e *encoder) {
			e.u8(uint8(a.StopTrigger))
			e.u32(a.StopDuration)
		})
		for _, inv := range a.InventoryParameterSpecs {
			inv := inv
			e.tlv(ParamInventoryParameterSpec, func(e *encoder) {
				e.u16(inv.ID)
				e.u8(uint8(inv.Protocol))
			})
		}
	})
}

func (r ROReportSpec) encode(e *encoder) {
	e.tlv(ParamROReportSpec, func(e *encoder) {
		e.u8(uint8(r.Trigger))
		e.u16(r.N)
		r.ContentSelector.encode(e)
	})
}

func (c TagReportContentSelector) encode(e *encoder) {
	e.tlv(ParamTagReportContentSelector, func(e *encoder) {
		e.u16(c.flags())
		if c.C1G2EPCMemorySelector != nil {
			sel := c.C1G2EPCMemorySelector
			e.tlv(ParamC1G2EPCMemorySelector, func(e *encoder) {
				e.u8(uint8(boolBit(sel.EnableCRC, 7) | boolBit(sel.EnablePCBits, 6)))
			})
		}
	})
}

// flags packs the ten enable bits MSB first; the low six bits are reserved.
func (c TagReportContentSelector) flags() uint16 {
	return boolBit(c.EnableROSpecID, 15) |
		boolBit(c.EnableSpecIndex, 14) |
		boolBit(c.EnableInventoryParameterSpecID, 13) |
		boolBit(c.EnableAntennaID, 12) |
		boolBit(c.EnableChannelIndex, 11) |
		boolBit(c.EnablePeakRSSI, 10) |
		boolBit(c.EnableFirstSeenTimestamp, 9) |
		boolBit(c.EnableLastSeenTimestamp, 8) |
		boolBit(c.EnableTagSeenCount, 7) |
		boolBit(c.EnableAccessSpecID, 6)
}

// NewAddROSpec wraps spec in an ADD_ROSPEC message.
func NewAddROSpec(spec ROSpec) Message {
	var e encoder
	spec.encode(&e)
	return Message{Type: MsgAddROSpec, Body: e.buf}
}

// NewROSpecCommand builds the ROSpecID-only messages:
// DELETE_ROSPEC, START_ROSPEC, STOP_ROSPEC, ENABLE_ROSPEC and DISABLE_ROSPEC.
func NewROSpecCommand(t MessageType, specID uint32) Message {
	var e encoder
	e.u32(specID)
	return Message{Type: t, Body: e.buf}
}

// DecodeROSpecID reads the body of an ROSpecID-only message.
func DecodeROSpecID(body []byte) (uint32, error) {
	if err := need(body, 4, "ROSpecID"); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(body), nil
}

// DecodeAddROSpec decodes the ROSpec carried by an ADD_ROSPEC body.
func DecodeAddROSpec(body []byte) (ROSpec, error) {
	params, err := parseParams(body)
	if err != nil {
		return ROSpec{}, err
	}
	for _, p := range params {
		if p.Type == ParamROSpec {
			return decodeROSpec(p.Value)
		}
	}
	return ROSpec{}, errors.Wrap(ErrMalformed, "ADD_ROSPEC without ROSpec parameter")
}

func decodeROSpec(v []byte) (ROSpec, error) {
	if err := need(v, 6, "ROSpec"); err != nil {
		return ROSpec{}, err
	}
	spec := ROSpec{
		ID:           binary.BigEndian.Uint32(v),
		Priority:     v[4],
		CurrentState: ROSpecState(v[5]),
	}
	params, err := parseParams(v[6:])
	if err != nil {
		return ROSpec{}, err
	}
	for _, p := range params {
		switch p.Type {
		case ParamROBoundarySpec:
			if spec.Boundary, err = decodeBoundary(p.Value); err != nil {
				return ROSpec{}, err
			}
		case ParamAISpec:
			ai, err := decodeAISpec(p.Value)
			if err != nil {
				return ROSpec{}, err
			}
			spec.AISpecs = append(spec.AISpecs, ai)
		case ParamROReportSpec:
			rs, err := decodeReportSpec(p.Value)
			if err != nil {
				return ROSpec{}, err
			}
			spec.ReportSpec = &rs
		}
	}
	return spec, nil
}

func decodeBoundary(v []byte) (ROBoundarySpec, error) {
	var b ROBoundarySpec
	params, err := parseParams(v)
	if err != nil {
		return b, err
	}
	for _, p := range params {
		switch p.Type {
		case ParamROSpecStartTrigger:
			if err := need(p.Value, 1, "ROSpecStartTrigger"); err != nil {
				return b, err
			}
			b.StartTrigger = ROSpecStartTriggerType(p.Value[0])
		case ParamROSpecStopTrigger:
			if err := need(p.Value, 5, "ROSpecStopTrigger"); err != nil {
				return b, err
			}
			b.StopTrigger = ROSpecStopTriggerType(p.Value[0])
			b.StopDuration = binary.BigEndian.Uint32(p.Value[1:])
		}
	}
	return b, nil
}

func decodeAISpec(v []byte) (AISpec, error) {
	var ai AISpec
	if err := need(v, 2, "AISpec"); err != nil {
		return ai, err
	}
	count := int(binary.BigEndian.Uint16(v))
	if err := need(v, 2+2*count, "AISpec antenna list"); err != nil {
		return ai, err
	}
	ai.AntennaIDs = make([]uint16, 0, count)
	for i := 0; i < count; i++ {
		ai.AntennaIDs = append(ai.AntennaIDs, binary.BigEndian.Uint16(v[2+2*i:]))
	}

	params, err := parseParams(v[2+2*count:])
	if err != nil {
		return ai, err
	}
	for _, p := range params {
		switch p.Type {
		case ParamAISpecStopTrigger:
			if err := need(p.Value, 5, "AISpecStopTrigger"); err != nil {
				return ai, err
			}
			ai.StopTrigger = AISpecStopTriggerType(p.Value[0])
			ai.StopDuration = binary.BigEndian.Uint32(p.Value[1:])
		case ParamInventoryParameterSpec:
			if err := need(p.Value, 3, "InventoryParameterSpec"); err != nil {
				return ai, err
			}
			ai.InventoryParameterSpecs = append(ai.InventoryParameterSpecs, InventoryParameterSpec{
				ID:       binary.BigEndian.Uint16(p.Value),
				Protocol: AirProtocol(p.Value[2]),
			})
		}
	}
	return ai, nil
}

func decodeReportSpec(v []byte) (ROReportSpec, error) {
	var rs ROReportSpec
	if err := need(v, 3, "ROReportSpec"); err != nil {
		return rs, err
	}
	rs.Trigger = ROReportTriggerType(v[0])
	rs.N = binary.BigEndian.Uint16(v[1:])

	params, err := parseParams(v[3:])
	if err != nil {
		return rs, err
	}
	for _, p := range params {
		if p.Type != ParamTagReportContentSelector {
			continue
		}
		if err := need(p.Value, 2, "TagReportContentSelector"); err != nil {
			return rs, err
		}
		rs.ContentSelector = selectorFromFlags(binary.BigEndian.Uint16(p.Value))

		sub, err := parseParams(p.Value[2:])
		if err != nil {
			return rs, err
		}
		for _, s := range sub {
			if s.Type != ParamC1G2EPCMemorySelector {
				continue
			}
			if err := need(s.Value, 1, "C1G2EPCMemorySelector"); err != nil {
				return rs, err
			}
			rs.ContentSelector.C1G2EPCMemorySelector = &C1G2EPCMemorySelector{
				EnableCRC:    s.Value[0]&0x80 != 0,
				EnablePCBits: s.Value[0]&0x40 != 0,
			}
		}
	}
	return rs, nil
}

func selectorFromFlags(f uint16) TagReportContentSelector {
	bit := func(shift uint) bool { return f&(1<<shift) != 0 }
	return TagReportContentSelector{
		EnableROSpecID:                 bit(15),
		EnableSpecIndex:                bit(14),
		EnableInventoryParameterSpecID: bit(13),
		EnableAntennaID:                bit(12),
		EnableChannelIndex:             bit(11),
		EnablePeakRSSI:                 bit(10),
		EnableFirstSeenTimestamp:       bit(9),
		EnableLastSeenTimestamp:        bit(8),
		EnableTagSeenCount:             bit(7),
		EnableAccessSpecID:             bit(6),
	}
}
