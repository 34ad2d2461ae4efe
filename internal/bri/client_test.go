package bri

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_llrp_go/sdk"
)

// fakeReader answers every command line with OK> unless it is listed in fail.
type fakeReader struct {
	t    *testing.T
	ln   net.Listener
	fail map[string]bool

	mu       sync.Mutex
	conn     net.Conn
	commands []string
}

func newFakeReader(t *testing.T, fail ...string) *fakeReader {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeReader{t: t, ln: ln, fail: make(map[string]bool)}
	for _, cmd := range fail {
		f.fail[cmd] = true
	}
	go f.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		f.mu.Lock()
		if f.conn != nil {
			_ = f.conn.Close()
		}
		f.mu.Unlock()
	})
	return f
}

func (f *fakeReader) endpoint() sdk.Endpoint {
	addr := f.ln.Addr().(*net.TCPAddr)
	return sdk.Endpoint{Host: "127.0.0.1", Port: addr.Port}
}

func (f *fakeReader) serve() {
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		f.mu.Unlock()
		if f.fail[cmd] {
			f.send("ERR unsupported")
			continue
		}
		f.send(promptOK)
	}
}

func (f *fakeReader) send(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		_, _ = f.conn.Write([]byte(line + "\r\n"))
	}
}

func (f *fakeReader) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type collector struct {
	mu   sync.Mutex
	tags []sdk.Tag
}

func (c *collector) HandleRead(ev sdk.ReadEvent) error {
	c.mu.Lock()
	c.tags = append(c.tags, ev.Tag)
	c.mu.Unlock()
	return nil
}

func (c *collector) Tags() []sdk.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sdk.Tag(nil), c.tags...)
}

func newClient(t *testing.T, f *fakeReader, opts ...Option) *Client {
	c := NewClient(sdk.ReaderConfig{
		Endpoint: f.endpoint(),
		Protocol: sdk.ProtocolBRI,
		Antennas: []sdk.AntennaConfig{{Number: 1, PowerPercent: 80}, {Number: 2, PowerPercent: 50}},
	}, opts...)
	t.Cleanup(c.StopReader)
	return c
}

func TestStartAndStopCommands(t *testing.T) {
	f := newFakeReader(t)
	c := newClient(t, f, WithFields(FieldTagID, FieldAntenna))

	require.NoError(t, c.StartReader(context.Background()))
	assert.Equal(t, sdk.StateRunning, c.State())
	assert.NotEmpty(t, c.Stats().SessionID)

	c.StopReader()
	assert.Equal(t, sdk.StateIdle, c.State())

	assert.Equal(t, []string{
		"ATTRIB ANTS=1,2",
		"READ TAGID ANT REPORT=EVENT",
		"READ STOP",
	}, f.Commands())
}

func TestTagEventsAreDispatched(t *testing.T) {
	f := newFakeReader(t)
	c := newClient(t, f, WithFields(FieldTagID, FieldAntenna))
	rec := &collector{}
	c.AddHandler(rec)
	require.NoError(t, c.StartReader(context.Background()))

	f.send("EVT:TAG H3000E2001234 HE2801160 2")
	f.send("EVT:TAG h0a0b")
	f.send("EVT:RADIO ON")

	require.Eventually(t, func() bool { return len(rec.Tags()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, sdk.Tag{EPC: "3000E2001234", Antenna: 2, TID: "E2801160"}, rec.Tags()[0])
	assert.Equal(t, sdk.Tag{EPC: "0A0B", Antenna: 0}, rec.Tags()[1])
}

func TestStartupCommandFailure(t *testing.T) {
	f := newFakeReader(t, "ATTRIB ANTS=1,2")
	c := newClient(t, f)

	err := c.StartReader(context.Background())

	var startErr *sdk.StartupError
	require.True(t, errors.As(err, &startErr))
	assert.Equal(t, sdk.StepConfigure, startErr.Step)
	assert.True(t, errors.Is(err, ErrCommandFailed))
	assert.True(t, errors.Is(err, sdk.ErrReaderStartup))
}

func TestStartUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := NewClient(sdk.ReaderConfig{
		Endpoint:       sdk.Endpoint{Host: "127.0.0.1", Port: port},
		ConnectTimeout: 300 * time.Millisecond,
	})
	err = c.StartReader(context.Background())
	assert.True(t, errors.Is(err, sdk.ErrConnection))
	c.StopReader()
}

func TestEndpointReportsDefaultPort(t *testing.T) {
	c := NewClient(sdk.ReaderConfig{Endpoint: sdk.Endpoint{Host: "reader.local"}})
	assert.Equal(t, DefaultPort, c.Endpoint().Port)
	assert.Equal(t, "reader.local:2189", c.Endpoint().String())

	c = NewClient(sdk.ReaderConfig{Endpoint: sdk.Endpoint{Host: "reader.local", Port: 3000}})
	assert.Equal(t, "reader.local:3000", c.Endpoint().String())
}

func TestParseTagEvent(t *testing.T) {
	fields := []Field{FieldAntenna, FieldTagID}

	tag, err := parseTagEvent("EVT:TAG HABCD 4 H1234", fields)
	require.NoError(t, err)
	assert.Equal(t, sdk.Tag{EPC: "ABCD", Antenna: 4, TID: "1234"}, tag)

	tag, err = parseTagEvent("EVT:TAG HABCD", fields)
	require.NoError(t, err)
	assert.Equal(t, 0, tag.Antenna)

	tag, err = parseTagEvent("EVT:TAG HABCD 3", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tag.Antenna, "ANT not requested")

	for _, bad := range []string{"EVT:TAG", "EVT:TAG H", "EVT:TAG HABCD x", "EVT:RADIO ON"} {
		_, err := parseTagEvent(bad, fields)
		assert.Equal(t, errMalformedEvent, errors.Cause(err), bad)
	}
}

func TestCommandBuilders(t *testing.T) {
	assert.Equal(t, "READ REPORT=EVENT", readCommand(nil))
	assert.Equal(t, "READ ANT COUNT REPORT=EVENT", readCommand([]Field{FieldAntenna, FieldCount}))
	assert.Equal(t, "ATTRIB ANTS=", antennasCommand(nil))
	assert.Equal(t, "ATTRIB ANTS=3,1", antennasCommand([]sdk.AntennaConfig{{Number: 3}, {Number: 1}}))
}
