package llrp

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// TagReportData is one tag observation from an RO_ACCESS_REPORT.
// Optional fields are only meaningful when the matching Has flag is set.
type TagReportData struct {
	EPC []byte

	AntennaID    uint16
	HasAntennaID bool

	PeakRSSI    int8
	HasPeakRSSI bool

	ROSpecID                 uint32
	InventoryParameterSpecID uint16
	AccessSpecID             uint32
}

// EPCHex is the EPC as upper-case hex.
func (t TagReportData) EPCHex() string {
	return strings.ToUpper(hex.EncodeToString(t.EPC))
}

// DecodeROAccessReport decodes every TagReportData in an RO_ACCESS_REPORT body.
// A malformed entry is dropped and its error appended to entryErrs; err is
// set when the body itself cannot be walked any further, in which case the
// entries decoded so far are still returned.
func DecodeROAccessReport(body []byte) (tags []TagReportData, entryErrs []error, err error) {
	params, err := parseParams(body)
	entry := 0
	for _, p := range params {
		if p.Type != ParamTagReportData {
			continue
		}
		tag, tagErr := decodeTagReportData(p.Value)
		if tagErr != nil {
			entryErrs = append(entryErrs, errors.Wrapf(tagErr, "tag report entry %d", entry))
			entry++
			continue
		}
		entry++
		tags = append(tags, tag)
	}
	return tags, entryErrs, err
}

func decodeTagReportData(v []byte) (TagReportData, error) {
	var tag TagReportData
	params, err := parseParams(v)
	if err != nil {
		return tag, err
	}

	haveEPC := false
	for _, p := range params {
		switch p.Type {
		case ParamEPC96:
			tag.EPC = append([]byte(nil), p.Value...)
			haveEPC = true
		case ParamEPCData:
			if err := need(p.Value, 2, "EPCData"); err != nil {
				return tag, err
			}
			bits := int(binary.BigEndian.Uint16(p.Value))
			n := (bits + 7) / 8
			if err := need(p.Value[2:], n, "EPCData value"); err != nil {
				return tag, err
			}
			tag.EPC = append([]byte(nil), p.Value[2:2+n]...)
			haveEPC = true
		case ParamAntennaID:
			tag.AntennaID = binary.BigEndian.Uint16(p.Value)
			tag.HasAntennaID = true
		case ParamPeakRSSI:
			tag.PeakRSSI = int8(p.Value[0])
			tag.HasPeakRSSI = true
		case ParamROSpecID:
			tag.ROSpecID = binary.BigEndian.Uint32(p.Value)
		case ParamInventoryParameterSpecID:
			tag.InventoryParameterSpecID = binary.BigEndian.Uint16(p.Value)
		case ParamAccessSpecID:
			tag.AccessSpecID = binary.BigEndian.Uint32(p.Value)
		}
	}

	if !haveEPC {
		return tag, errors.Wrap(ErrMalformed, "tag report entry without EPC parameter")
	}
	return tag, nil
}

// NewROAccessReport encodes tags as a reader would. 96-bit EPCs use the
// compact EPC-96 form, anything else EPCData.
func NewROAccessReport(tags []TagReportData) Message {
	var e encoder
	for _, t := range tags {
		t := t
		e.tlv(ParamTagReportData, func(e *encoder) {
			if len(t.EPC) == 12 {
				e.tv(ParamEPC96, func(e *encoder) { e.raw(t.EPC) })
			} else {
				e.tlv(ParamEPCData, func(e *encoder) {
					e.u16(uint16(len(t.EPC) * 8))
					e.raw(t.EPC)
				})
			}
			if t.ROSpecID != 0 {
				e.tv(ParamROSpecID, func(e *encoder) { e.u32(t.ROSpecID) })
			}
			if t.InventoryParameterSpecID != 0 {
				e.tv(ParamInventoryParameterSpecID, func(e *encoder) { e.u16(t.InventoryParameterSpecID) })
			}
			if t.HasAntennaID {
				e.tv(ParamAntennaID, func(e *encoder) { e.u16(t.AntennaID) })
			}
			if t.HasPeakRSSI {
				e.tv(ParamPeakRSSI, func(e *encoder) { e.u8(uint8(t.PeakRSSI)) })
			}
			if t.AccessSpecID != 0 {
				e.tv(ParamAccessSpecID, func(e *encoder) { e.u32(t.AccessSpecID) })
			}
		})
	}
	return Message{Type: MsgROAccessReport, Body: e.buf}
}
