package tinyg

import (
	"fmt"
	"strings"

	"github.com/mastercactapus/g2stream/machine"
)

type lineReader interface {
	Name() string
	ReadLine() (string, error)
}

// StatusReader owns the control Endpoint's inbound side. It keeps the credit
// pool in step with the controller's queue reports and republishes every line.
type StatusReader struct {
	name string
	ep   lineReader
	flow *FlowControl
	cmd  machine.Channel
	con  *console
}

var _ machine.Telemetry = &StatusReader{}

func newStatusReader(name string, ep lineReader, flow *FlowControl, cmd machine.Channel, con *console) *StatusReader {
	return &StatusReader{
		name: name,
		ep:   ep,
		flow: flow,
		cmd:  cmd,
		con:  con.with("port", ep.Name()),
	}
}

// Run reads until the session is closed or the stream fails.
func (r *StatusReader) Run() {
	r.con.emit(machine.SeverityInfo, "%s status reader start on port %s", r.name, r.ep.Name())
	err := r.loop()
	if err != nil {
		r.con.emit(machine.SeverityError, "%s status reader on port %s: %v", r.name, r.ep.Name(), err)
		return
	}
	r.con.emit(machine.SeverityInfo, "%s status reader stop on port %s", r.name, r.ep.Name())
}

func (r *StatusReader) loop() error {
	for r.flow.IsOpen() {
		line, err := r.ep.ReadLine()
		if err != nil {
			if !r.flow.IsOpen() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		err = r.handle(line)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *StatusReader) handle(line string) error {
	line = strings.TrimSpace(line)
	kind := Classify(line)
	if kind == KindEmpty {
		return nil
	}
	r.con.log.WithField("line", line).Debug("recv")

	switch kind {
	case KindStatus:
		rep, err := ParseStatusReport(line)
		if err != nil {
			return fmt.Errorf("parse status report %q: %w", line, err)
		}
		if rep.QueueReport != nil && r.flow.IsRunning() {
			if r.flow.Resync(*rep.QueueReport) {
				r.cmd.Send(cmdSuppressQueueReports)
			}
		}
		r.con.publish(*rep)
	case KindData:
		r.con.publish(machine.DataReport(line))
		r.con.publish(machine.Line(line))
	default:
		r.con.publish(machine.Line(line))
	}

	return nil
}
