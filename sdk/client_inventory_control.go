package sdk

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/protocol/llrp"
)

type lifecycleStep struct {
	name string
	msg  llrp.Message
	next State
}

// StartReader connects, clears any stale ROSpec, configures the antennas and
// starts a continuous inventory. A failed step aborts the sequence with a
// *StartupError and nothing is rolled back; calling StartReader again
// recovers because the sequence always begins with a delete.
func (c *Client) StartReader(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == StateRunning {
		return nil
	}
	entry := c.log.WithFields(log.Fields{"Method": "StartReader"})

	if err := c.Connect(ctx); err != nil {
		entry.WithFields(log.Fields{
			"Action": StepConnect,
			"Error":  err.Error(),
		}).Error("reader unreachable")
		return &StartupError{Step: StepConnect, Err: err}
	}
	entry = entry.WithField("Session", c.transport.SessionID())
	c.dispatch.Start()

	preDelete := llrp.NewROSpecCommand(llrp.MsgDeleteROSpec, ROSpecID)
	if _, err := c.transport.Transact(preDelete, c.timeout); err != nil {
		entry.WithFields(log.Fields{
			"Action": StepPreDelete,
			"Error":  err.Error(),
		}).Info("no stale ROSpec removed")
	}
	c.setState(StateConnected)

	steps := []lifecycleStep{
		{StepConfigure, llrp.NewSetReaderConfig(BuildReaderConfig(c.cfg.Antennas)), StateConfigured},
		{StepAdd, llrp.NewAddROSpec(BuildROSpec(c.cfg.Antennas)), StateSpecLoaded},
		{StepEnable, llrp.NewROSpecCommand(llrp.MsgEnableROSpec, ROSpecID), StateSpecEnabled},
		{StepStart, llrp.NewROSpecCommand(llrp.MsgStartROSpec, ROSpecID), StateRunning},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StartupError{Step: step.name, Err: err}
		}
		if _, err := c.transport.Transact(step.msg, c.timeout); err != nil {
			entry.WithFields(log.Fields{
				"Action": step.name,
				"Error":  err.Error(),
			}).Error("reader startup aborted")
			return &StartupError{Step: step.name, Err: err}
		}
		c.setState(step.next)
		entry.WithField("Action", step.name).Debug("step complete")
	}

	entry.WithFields(log.Fields{
		"Action":   "running",
		"Antennas": len(c.cfg.Antennas),
	}).Info("reader inventory running")
	c.emitStatus("reader running")
	return nil
}

// StopReader stops and deletes the ROSpec whenever a session is open, then
// disconnects. It follows the BestEffortTeardown policy and always ends in
// StateIdle.
func (c *Client) StopReader() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	// an aborted start may have left a ROSpec the local state never saw
	state := c.State()
	if c.transport.IsConnected() {
		if c.bestEffortTeardown(StepStop, llrp.NewROSpecCommand(llrp.MsgStopROSpec, ROSpecID)) && state >= StateSpecEnabled {
			c.setState(StateSpecLoaded)
		}
		if c.bestEffortTeardown(StepDelete, llrp.NewROSpecCommand(llrp.MsgDeleteROSpec, ROSpecID)) && state >= StateSpecLoaded {
			c.setState(StateConnected)
		}
	}

	c.Disconnect()
	c.dispatch.Stop()
	if state != StateIdle {
		c.emitStatus("reader stopped")
	}
}

// bestEffortTeardown runs one shutdown transaction. A failure is logged and
// published on Errors as a *TeardownError, never returned.
func (c *Client) bestEffortTeardown(step string, msg llrp.Message) bool {
	if _, err := c.transport.Transact(msg, c.timeout); err != nil {
		c.log.WithFields(log.Fields{
			"Method": "StopReader",
			"Action": step,
			"Error":  err.Error(),
		}).Warn("teardown step failed")
		c.emitErr(&TeardownError{Step: step, Err: err})
		return false
	}
	return true
}

// Pause stops the ROSpec but keeps it loaded and the connection open.
func (c *Client) Pause() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	switch c.State() {
	case StateStopped:
		return nil
	case StateRunning:
	default:
		return errors.Errorf("cannot pause reader in state %s", c.State())
	}
	if _, err := c.transport.Transact(llrp.NewROSpecCommand(llrp.MsgStopROSpec, ROSpecID), c.timeout); err != nil {
		return errors.Wrap(err, "pause reader")
	}
	c.setState(StateStopped)
	c.emitStatus("reader paused")
	return nil
}

// Resume restarts a paused ROSpec.
func (c *Client) Resume() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	switch c.State() {
	case StateRunning:
		return nil
	case StateStopped:
	default:
		return errors.Errorf("cannot resume reader in state %s", c.State())
	}
	if _, err := c.transport.Transact(llrp.NewROSpecCommand(llrp.MsgStartROSpec, ROSpecID), c.timeout); err != nil {
		return errors.Wrap(err, StepResume)
	}
	c.setState(StateRunning)
	c.emitStatus("reader resumed")
	return nil
}
