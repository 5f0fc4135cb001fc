package tinyg

import (
	"testing"
	"time"

	"github.com/mastercactapus/g2stream/endpoint"
	"github.com/mastercactapus/g2stream/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readerHarness struct {
	host   *endpoint.Endpoint
	dev    *device
	flow   *FlowControl
	events <-chan interface{}
	done   chan struct{}
}

func startReader(t *testing.T, running bool) *readerHarness {
	host, dev := newDevice(endpoint.LF)
	con := testConsole()
	events, _ := con.bus.Subscribe(1000)

	flow := NewFlowControl(4, 4)
	flow.SetOpen(true)
	flow.SetRunning(running)

	h := &readerHarness{host: host, dev: dev, flow: flow, events: events, done: make(chan struct{})}
	r := newStatusReader("test", host, flow, newCommandWriter(host, con), con)
	go func() {
		r.Run()
		close(h.done)
	}()
	return h
}

func (h *readerHarness) close(t *testing.T) {
	h.flow.Teardown()
	h.host.Close()
	h.dev.Close()
	select {
	case <-h.done:
	case <-time.After(waitTimeout):
		t.Fatal("reader did not stop")
	}
}

// next returns the next non-message event.
func (h *readerHarness) next(t *testing.T) interface{} {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case v := <-h.events:
			if _, ok := v.(machine.Message); ok {
				continue
			}
			return v
		case <-timeout:
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestStatusReader_QueueReports(t *testing.T) {
	h := startReader(t, true)
	defer h.close(t)

	h.dev.Send(`{"r":{"qr":2},"f":[1,0,9]}`)
	rep, ok := h.next(t).(machine.StatusReport)
	require.True(t, ok)
	require.NotNil(t, rep.QueueReport)
	assert.Equal(t, 2, *rep.QueueReport)
	assert.Equal(t, 2, h.flow.Available())
	assert.False(t, h.flow.ClaimPending())

	h.dev.Send(`{"qr":0}`)
	assert.Equal(t, `{"qr:n"}`, recv(t, h.dev.ctrl))
	_, ok = h.next(t).(machine.StatusReport)
	assert.True(t, ok)
	assert.Equal(t, 0, h.flow.Available())
	assert.True(t, h.flow.ClaimPending())

	h.dev.Send(`{"sr":{"posx":1,"qr":9}}`)
	h.next(t)
	assert.Equal(t, 4, h.flow.Available())
}

func TestStatusReader_OutOfRangeQueueReport(t *testing.T) {
	h := startReader(t, true)
	defer h.close(t)

	h.dev.Send(`{"qr":1e300}`)
	h.next(t)
	assert.Equal(t, 4, h.flow.Available())
	assert.False(t, h.flow.ClaimPending())

	h.dev.Send(`{"qr":-5}`)
	assert.Equal(t, cmdSuppressQueueReports, recv(t, h.dev.ctrl))
	h.next(t)
	assert.Equal(t, 0, h.flow.Available())

	h.dev.Send(`{"qr":1e300}`)
	h.next(t)
	assert.Equal(t, 4, h.flow.Available())
	expectQuiet(t, h.dev.ctrl)
}

func TestStatusReader_NotRunning(t *testing.T) {
	h := startReader(t, false)
	defer h.close(t)

	h.dev.Send(`{"qr":0}`)
	_, ok := h.next(t).(machine.StatusReport)
	assert.True(t, ok)
	assert.Equal(t, 4, h.flow.Available())
	expectQuiet(t, h.dev.ctrl)
}

func TestStatusReader_Classification(t *testing.T) {
	h := startReader(t, false)
	defer h.close(t)

	h.dev.Send("")
	h.dev.Send("   ")
	h.dev.Send("[1.5,2,3]")
	assert.Equal(t, machine.DataReport("[1.5,2,3]"), h.next(t))
	assert.Equal(t, machine.Line("[1.5,2,3]"), h.next(t))

	h.dev.Send("  tinyg [mm] ok> ")
	assert.Equal(t, machine.Line("tinyg [mm] ok>"), h.next(t))
}

func TestStatusReader_ParseErrorEndsLoop(t *testing.T) {
	h := startReader(t, true)
	defer h.close(t)

	h.dev.Send(`{"r":`)
	msg := waitMessage(t, h.events, machine.SeverityError)
	assert.Contains(t, msg.Text, "parse status report")

	select {
	case <-h.done:
	case <-time.After(waitTimeout):
		t.Fatal("reader still running after parse error")
	}
}

func TestStatusReader_ReadErrorEndsLoop(t *testing.T) {
	h := startReader(t, true)
	defer h.close(t)

	h.dev.Close()
	msg := waitMessage(t, h.events, machine.SeverityError)
	assert.Contains(t, msg.Text, "read")
	<-h.done
}

func TestStatusReader_CloseIsNotAnError(t *testing.T) {
	h := startReader(t, true)

	waitMessage(t, h.events, machine.SeverityInfo)
	h.close(t)

	msg := waitMessage(t, h.events, machine.SeverityInfo)
	assert.Contains(t, msg.Text, "stop")
	for {
		select {
		case v := <-h.events:
			if m, ok := v.(machine.Message); ok {
				assert.NotEqual(t, machine.SeverityError, m.Severity, m.Text)
			}
		default:
			return
		}
	}
}
