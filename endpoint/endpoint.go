package endpoint

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned from any operation on an Endpoint after Close.
var ErrClosed = errors.New("endpoint closed")

const maxLineSize = 64 * 1024

// Endpoint is a line-oriented view of a single bidirectional connection.
//
// One goroutine may call ReadLine while another calls WriteLine; concurrent
// writers must be serialized by the caller.
type Endpoint struct {
	name string
	rwc  io.ReadWriteCloser
	eol  EOL
	scan *bufio.Scanner

	mx     sync.Mutex
	closed bool
}

// New wraps rwc, splitting inbound data and terminating outbound lines with eol.
func New(name string, rwc io.ReadWriteCloser, eol EOL) *Endpoint {
	scan := bufio.NewScanner(rwc)
	scan.Buffer(make([]byte, 0, 4096), maxLineSize)
	scan.Split(eol.splitFunc())
	return &Endpoint{
		name: name,
		rwc:  rwc,
		eol:  eol,
		scan: scan,
	}
}

// Name is the address the Endpoint was opened with.
func (ep *Endpoint) Name() string { return ep.name }

// IsOpen reports whether Close has not been called yet.
func (ep *Endpoint) IsOpen() bool {
	ep.mx.Lock()
	defer ep.mx.Unlock()
	return !ep.closed
}

// ReadLine blocks until a full line (without terminator) is available.
//
// An empty string is a valid result. If the underlying stream ends, io.EOF is
// returned; if the Endpoint was closed, ErrClosed is.
func (ep *Endpoint) ReadLine() (string, error) {
	if ep.scan.Scan() {
		return ep.scan.Text(), nil
	}
	if !ep.IsOpen() {
		return "", ErrClosed
	}
	if err := ep.scan.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// WriteLine writes line followed by the terminator in a single Write call.
func (ep *Endpoint) WriteLine(line string) error {
	if !ep.IsOpen() {
		return ErrClosed
	}
	buf := make([]byte, 0, len(line)+2)
	buf = append(buf, line...)
	buf = append(buf, ep.eol.Bytes()...)
	_, err := ep.rwc.Write(buf)
	if err != nil && !ep.IsOpen() {
		return ErrClosed
	}
	return err
}

// Close releases the underlying connection. Only the first call has an effect.
func (ep *Endpoint) Close() error {
	ep.mx.Lock()
	if ep.closed {
		ep.mx.Unlock()
		return nil
	}
	ep.closed = true
	ep.mx.Unlock()

	return ep.rwc.Close()
}
