package manager

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_llrp_go/internal/protocol/llrp"
	"rfid_llrp_go/internal/simulator"
	"rfid_llrp_go/sdk"
)

func startSim(t *testing.T, opts ...simulator.Option) *simulator.Reader {
	t.Helper()
	sim, err := simulator.Listen("127.0.0.1:0", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sim.Close() })
	return sim
}

func newManager(t *testing.T, sim *simulator.Reader, opts ...Option) *Manager {
	t.Helper()
	client := sdk.NewClient(sdk.ReaderConfig{
		Endpoint:       sdk.Endpoint{Host: sim.Host(), Port: sim.Port()},
		Antennas:       []sdk.AntennaConfig{{Number: 1, PowerPercent: 80}},
		ConnectTimeout: time.Second,
	}, sdk.WithTransactTimeout(300*time.Millisecond))
	opts = append([]Option{WithRetry(20*time.Millisecond, 100*time.Millisecond), WithCheckInterval(20 * time.Millisecond)}, opts...)
	m := New(client, opts...)
	t.Cleanup(m.Stop)
	return m
}

type notes struct {
	mu    sync.Mutex
	lines []string
}

func (n *notes) add(text string) {
	n.mu.Lock()
	n.lines = append(n.lines, text)
	n.mu.Unlock()
}

func (n *notes) contains(prefix string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, l := range n.lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func running(m *Manager) func() bool {
	return func() bool { return m.Status().State == sdk.StateRunning }
}

func TestStartRecordsReadsAndStop(t *testing.T) {
	sim := startSim(t)
	n := &notes{}
	m := newManager(t, sim, WithNotifier(n.add))

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, running(m), 2*time.Second, 10*time.Millisecond)
	assert.True(t, sim.Running())
	assert.Equal(t, 1, sim.Accepted())

	sim.PushReport(llrp.TagReportData{EPC: []byte{0x30, 0x00, 0xAB}, AntennaID: 1, HasAntennaID: true})
	require.Eventually(t, func() bool { return m.Status().Reads == 1 }, 2*time.Second, 10*time.Millisecond)

	st := m.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "3000AB", st.LastTagEPC)
	assert.False(t, st.LastTagAt.IsZero())
	assert.NotEmpty(t, st.SessionID)
	assert.Contains(t, m.StatusText(), "last_tag=3000AB")

	m.Stop()
	assert.False(t, m.Running())
	assert.False(t, m.Status().Running)
	assert.Equal(t, sdk.StateIdle, m.Status().State)
	assert.False(t, sim.Running())
	assert.True(t, n.contains("reader running"))
	assert.True(t, n.contains("reader stopped"))
}

func TestRetriesFailedStartup(t *testing.T) {
	sim := startSim(t, simulator.DropFirst(llrp.MsgAddROSpec, 1))
	m := newManager(t, sim)

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, running(m), 3*time.Second, 10*time.Millisecond)

	st := m.Status()
	assert.GreaterOrEqual(t, st.RestartCount, uint64(1))
	assert.Empty(t, st.LastError)
	assert.GreaterOrEqual(t, sim.Accepted(), 2)
}

func TestRestartsAfterSessionLoss(t *testing.T) {
	sim := startSim(t)
	n := &notes{}
	m := newManager(t, sim, WithNotifier(n.add))

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, running(m), 2*time.Second, 10*time.Millisecond)

	sim.Kick()
	require.Eventually(t, func() bool { return sim.Accepted() >= 2 && sim.Running() }, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, running(m), 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, m.Status().RestartCount, uint64(1))
	assert.True(t, n.contains("reader lost"))
}

func TestStopWhileUnreachable(t *testing.T) {
	sim := startSim(t)
	require.NoError(t, sim.Close())
	m := newManager(t, sim)

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool { return m.Status().LastError != "" }, 2*time.Second, 10*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.False(t, m.Status().Running)
}

func TestStatusTextBeforeStart(t *testing.T) {
	sim := startSim(t)
	m := newManager(t, sim)

	text := m.StatusText()
	assert.Contains(t, text, "running=false")
	assert.Contains(t, text, "state=Idle")
	assert.Contains(t, text, "last_tag=-")
	assert.Contains(t, text, "at=never")
}

func TestSleepWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, sleepWithContext(ctx, time.Millisecond))
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Hour))
	assert.False(t, sleepWithContext(ctx, 0))
}
