package llrp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ReaderConfig is the subset of SET_READER_CONFIG this engine sends.
type ReaderConfig struct {
	ResetToFactoryDefault bool
	AntennaConfigurations []AntennaConfiguration
}

// AntennaConfiguration sets per-antenna RF parameters. AntennaID 0 targets all antennas.
type AntennaConfiguration struct {
	AntennaID     uint16
	RFReceiver    *RFReceiver
	RFTransmitter *RFTransmitter
}

// RFReceiver.Sensitivity is an index into the reader's sensitivity table.
type RFReceiver struct {
	Sensitivity uint16
}

// RFTransmitter.TransmitPower is an index into the reader's power table.
type RFTransmitter struct {
	HopTableID    uint16
	ChannelIndex  uint16
	TransmitPower uint16
}

// NewSetReaderConfig encodes cfg into a SET_READER_CONFIG message.
func NewSetReaderConfig(cfg ReaderConfig) Message {
	var e encoder
	if cfg.ResetToFactoryDefault {
		e.u8(0x80)
	} else {
		e.u8(0x00)
	}
	for _, ac := range cfg.AntennaConfigurations {
		ac := ac
		e.tlv(ParamAntennaConfiguration, func(e *encoder) {
			e.u16(ac.AntennaID)
			if ac.RFReceiver != nil {
				e.tlv(ParamRFReceiver, func(e *encoder) {
					e.u16(ac.RFReceiver.Sensitivity)
				})
			}
			if ac.RFTransmitter != nil {
				e.tlv(ParamRFTransmitter, func(e *encoder) {
					e.u16(ac.RFTransmitter.HopTableID)
					e.u16(ac.RFTransmitter.ChannelIndex)
					e.u16(ac.RFTransmitter.TransmitPower)
				})
			}
		})
	}
	return Message{Type: MsgSetReaderConfig, Body: e.buf}
}

// DecodeSetReaderConfig is the inverse of NewSetReaderConfig.
func DecodeSetReaderConfig(body []byte) (ReaderConfig, error) {
	var cfg ReaderConfig
	if err := need(body, 1, "SET_READER_CONFIG"); err != nil {
		return cfg, err
	}
	cfg.ResetToFactoryDefault = body[0]&0x80 != 0

	params, err := parseParams(body[1:])
	if err != nil {
		return cfg, err
	}
	for _, p := range params {
		if p.Type != ParamAntennaConfiguration {
			continue
		}
		ac, err := decodeAntennaConfiguration(p.Value)
		if err != nil {
			return cfg, err
		}
		cfg.AntennaConfigurations = append(cfg.AntennaConfigurations, ac)
	}
	return cfg, nil
}

func decodeAntennaConfiguration(v []byte) (AntennaConfiguration, error) {
	var ac AntennaConfiguration
	if err := need(v, 2, "AntennaConfiguration"); err != nil {
		return ac, err
	}
	ac.AntennaID = binary.BigEndian.Uint16(v)

	params, err := parseParams(v[2:])
	if err != nil {
		return ac, err
	}
	for _, p := range params {
		switch p.Type {
		case ParamRFReceiver:
			if len(p.Value) < 2 {
				return ac, errors.Wrap(ErrMalformed, "RFReceiver truncated")
			}
			ac.RFReceiver = &RFReceiver{Sensitivity: binary.BigEndian.Uint16(p.Value)}
		case ParamRFTransmitter:
			if len(p.Value) < 6 {
				return ac, errors.Wrap(ErrMalformed, "RFTransmitter truncated")
			}
			ac.RFTransmitter = &RFTransmitter{
				HopTableID:    binary.BigEndian.Uint16(p.Value),
				ChannelIndex:  binary.BigEndian.Uint16(p.Value[2:]),
				TransmitPower: binary.BigEndian.Uint16(p.Value[4:]),
			}
		}
	}
	return ac, nil
}
