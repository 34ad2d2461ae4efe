package sdk

import (
	"time"

	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/protocol/llrp"
	"rfid_llrp_go/internal/reader"
)

// defaultAntenna is reported when a tag entry carries no AntennaID.
const defaultAntenna = 1

// onInbound runs on the transport's read goroutine and must not block.
func (c *Client) onInbound(msg llrp.Message) {
	switch msg.Type {
	case llrp.MsgROAccessReport:
		c.handleReport(msg)
	case llrp.MsgReaderEventNotification:
		c.handleReaderEvent(msg)
	case llrp.MsgErrorMessage:
		c.handleErrorMessage(msg)
	default:
		c.log.WithFields(log.Fields{
			"Method": "onInbound",
			"Type":   msg.Type.String(),
		}).Debug("ignoring unsolicited message")
	}
}

func (c *Client) handleReport(msg llrp.Message) {
	tags, entryErrs, err := llrp.DecodeROAccessReport(msg.Body)
	for _, entryErr := range entryErrs {
		c.decodeFailed(msg, entryErr)
	}
	if err != nil {
		c.decodeFailed(msg, err)
	}

	now := time.Now()
	for _, t := range tags {
		c.dispatch.Publish(ReadEvent{
			Tag:    tagFromReport(t),
			Reader: c.cfg.Endpoint,
			When:   now,
		})
	}
}

func tagFromReport(t llrp.TagReportData) Tag {
	antenna := defaultAntenna
	if t.HasAntennaID {
		antenna = int(t.AntennaID)
	}
	return Tag{EPC: t.EPCHex(), Antenna: antenna}
}

func (c *Client) decodeFailed(msg llrp.Message, err error) {
	c.decodeErrs.Add(1)
	c.log.WithFields(log.Fields{
		"Method": "handleReport",
		"ID":     msg.ID,
		"Error":  err.Error(),
	}).Warn("report entry dropped")
	c.emitErr(&reader.DecodeError{What: msg.Type.String(), Err: err})
}

func (c *Client) handleReaderEvent(msg llrp.Message) {
	ev, err := llrp.DecodeReaderEventNotification(msg.Body)
	if err != nil {
		c.decodeFailed(msg, err)
		return
	}
	entry := c.log.WithField("Method", "handleReaderEvent")

	if ev.ReaderException != "" {
		entry.WithField("Exception", ev.ReaderException).Warn("reader exception")
		c.emitErr(&DeviceError{Message: ev.ReaderException})
	}
	if ev.Antenna != nil {
		entry.WithFields(log.Fields{
			"Antenna":   ev.Antenna.AntennaID,
			"Connected": ev.Antenna.Connected,
		}).Info("antenna event")
	}
	if ev.ROSpec != nil {
		entry.WithFields(log.Fields{
			"ROSpecID": ev.ROSpec.ROSpecID,
			"Event":    ev.ROSpec.Type,
		}).Debug("rospec event")
	}
	if ev.ConnectionClosed {
		entry.Info("reader is closing the connection")
	}
}

func (c *Client) handleErrorMessage(msg llrp.Message) {
	st, err := llrp.DecodeStatus(msg.Body)
	if err != nil {
		c.decodeFailed(msg, err)
		return
	}
	c.log.WithFields(log.Fields{
		"Method": "handleErrorMessage",
		"ID":     msg.ID,
		"Status": st.String(),
	}).Warn("reader error message")
	c.emitErr(&DeviceError{Message: st.String()})
}
