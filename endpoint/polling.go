package endpoint

import (
	"io"
	"sync"
	"time"
)

// tarm/serial reads block in the kernel and Close cannot interrupt them, so
// its ports are opened with a read timeout and polled.
const tarmReadTimeout = 100 * time.Millisecond

// pollingPort turns a port whose reads time out into one whose reads block
// until data arrives or Close is called.
type pollingPort struct {
	io.ReadWriteCloser

	mx     sync.Mutex
	closed bool
}

func newPollingPort(rwc io.ReadWriteCloser) *pollingPort {
	return &pollingPort{ReadWriteCloser: rwc}
}

func (p *pollingPort) isClosed() bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.closed
}

// Read retries timed-out reads, which surface as (0, nil) or (0, io.EOF).
func (p *pollingPort) Read(b []byte) (int, error) {
	for {
		n, err := p.ReadWriteCloser.Read(b)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		if p.isClosed() {
			return 0, io.ErrClosedPipe
		}
	}
}

func (p *pollingPort) Close() error {
	p.mx.Lock()
	p.closed = true
	p.mx.Unlock()
	return p.ReadWriteCloser.Close()
}
