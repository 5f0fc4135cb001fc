package tinyg

import (
	"io"

	"github.com/mastercactapus/g2stream/machine"
)

// UploadStreamer drives one upload job under flow control.
type UploadStreamer struct {
	name string
	port string
	flow *FlowControl
	src  machine.UploadSource
	out  machine.Channel
	con  *console
}

func newUploadStreamer(name, port string, flow *FlowControl, src machine.UploadSource, out machine.Channel, con *console) *UploadStreamer {
	return &UploadStreamer{
		name: name,
		port: port,
		flow: flow,
		src:  src,
		out:  out,
		con:  con.with("port", port),
	}
}

// Run streams the source until it is exhausted, stopped or fails.
func (u *UploadStreamer) Run() machine.JobResult {
	u.con.emit(machine.SeverityInfo, "%s upload start on port %s", u.name, u.port)
	res := u.stream()
	if res.State == machine.JobFailed {
		u.con.emit(machine.SeverityError, "%s upload on port %s failed after %d lines: %v", u.name, u.port, res.Lines, res.Err)
		return res
	}
	u.con.emit(machine.SeverityInfo, "%s upload stop on port %s, %d lines %s", u.name, u.port, res.Lines, res.State)
	return res
}

func (u *UploadStreamer) stream() machine.JobResult {
	var n int
	aborted := func() machine.JobResult { return machine.JobResult{State: machine.JobAborted, Lines: n} }

	for {
		u.flow.WaitWhilePaused()
		if !u.flow.IsRunning() {
			return aborted()
		}

		line, err := u.src.Next()
		if err == io.EOF {
			return machine.JobResult{State: machine.JobCompleted, Lines: n}
		}
		if err != nil {
			return machine.JobResult{State: machine.JobFailed, Lines: n, Err: err}
		}

		if !u.flow.TryAcquire() {
			// the pool is empty; consume the reader's scarcity signal before waiting
			u.flow.ReleaseClaim()
			if u.flow.Acquire() != nil {
				return aborted()
			}
		}

		// a pause may have arrived while waiting for credit
		u.flow.WaitWhilePaused()
		if !u.flow.IsRunning() {
			return aborted()
		}

		n++
		u.con.publish(machine.Progress{Line: n, Text: line})
		u.out.Send(line)

		if !u.flow.IsRunning() {
			return aborted()
		}
	}
}
