package tinyg

import (
	"sync"

	"github.com/mastercactapus/g2stream/endpoint"
	"github.com/mastercactapus/g2stream/machine"
)

type lineWriter interface {
	Name() string
	WriteLine(string) error
}

// CommandWriter serializes lines onto one Endpoint.
//
// There is exactly one CommandWriter per Endpoint; roles that need to write to
// the same Endpoint share it.
type CommandWriter struct {
	mx  sync.Mutex
	ep  lineWriter
	con *console
}

var _ machine.Channel = &CommandWriter{}

func newCommandWriter(ep lineWriter, con *console) *CommandWriter {
	return &CommandWriter{ep: ep, con: con.with("port", ep.Name())}
}

// Send writes line plus terminator. Failures are reported and dropped.
func (w *CommandWriter) Send(line string) {
	w.mx.Lock()
	err := w.ep.WriteLine(line)
	w.mx.Unlock()

	if err == endpoint.ErrClosed {
		w.con.emit(machine.SeverityWarning, "port %s closed, dropped %q", w.ep.Name(), line)
		return
	}
	if err != nil {
		w.con.emit(machine.SeverityError, "write to port %s: %v", w.ep.Name(), err)
		return
	}
	w.con.log.WithField("line", line).Debug("sent")
}
