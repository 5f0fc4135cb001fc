package tinyg

import (
	"errors"
	"sync"

	"github.com/mastercactapus/g2stream/endpoint"
	"github.com/mastercactapus/g2stream/machine"
	"github.com/sirupsen/logrus"
)

// ErrNotOpen is returned by Send when no session is open.
var ErrNotOpen = errors.New("session not open")

// An Opener acquires one endpoint of a session.
type Opener func(address string, opt endpoint.Options) (*endpoint.Endpoint, error)

// Controller owns the session lifecycle: it opens and closes endpoints,
// starts the status reader and upload streamer, and turns open/start/pause
// requests into FlowControl transitions.
//
// Requests that do not apply in the current state (Start while closed, Pause
// while not running, Close while closed) are ignored; every request returns
// the resulting state.
type Controller struct {
	cfg  Config
	open Opener
	bus  *machine.Bus
	con  *console

	mx   sync.Mutex
	sess *session
	job  *job
}

type session struct {
	flow *FlowControl

	ctrl   *endpoint.Endpoint
	upload *endpoint.Endpoint

	cmd   *CommandWriter
	upCmd *CommandWriter

	done chan struct{}
}

type job struct {
	done chan struct{}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithOpener replaces endpoint.Open, mostly for tests.
func WithOpener(open Opener) Option { return func(c *Controller) { c.open = open } }

// WithLogger sets the logger messages are written to.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) { c.con.log = log }
}

// NewController validates cfg and returns an idle, closed Controller.
func NewController(cfg Config, opts ...Option) (*Controller, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	bus := machine.NewBus()
	c := &Controller{
		cfg:  cfg,
		open: endpoint.Open,
		bus:  bus,
		con:  &console{bus: bus, log: logrus.NewEntry(logrus.StandardLogger())},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.con = c.con.with("controller", cfg.Name)
	return c, nil
}

// Config returns the session configuration.
func (c *Controller) Config() Config { return c.cfg }

// Subscribe returns a channel of events (machine.Message, machine.StatusReport,
// machine.DataReport, machine.Line, machine.Progress, machine.JobResult).
func (c *Controller) Subscribe(size int) (<-chan interface{}, func()) {
	return c.bus.Subscribe(size)
}

// State returns the current session controls.
func (c *Controller) State() machine.State {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() machine.State {
	if c.sess == nil {
		return machine.State{}
	}
	return machine.State{
		Open:  true,
		Start: c.sess.flow.IsRunning(),
		Pause: c.sess.flow.IsPaused(),
	}
}

// Open acquires the endpoint(s) and starts the status reader. On failure the
// session stays closed.
func (c *Controller) Open() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.sess != nil {
		return nil
	}

	opt := c.cfg.endpointOptions()
	ctrl, err := c.open(c.cfg.Port, opt)
	if err != nil {
		c.con.emit(machine.SeverityError, "%s opening port %s: %v", c.cfg.Name, c.cfg.Port, err)
		return err
	}
	s := &session{ctrl: ctrl, done: make(chan struct{})}

	if c.cfg.DualPort() {
		s.upload, err = c.open(c.cfg.UploadPort, opt)
		if err != nil {
			ctrl.Close()
			c.con.emit(machine.SeverityError, "%s opening upload port %s: %v", c.cfg.Name, c.cfg.UploadPort, err)
			return err
		}
	}
	c.con.emit(machine.SeverityInfo, "%s opening port %s... done", c.cfg.Name, c.cfg.Port)

	s.flow = NewFlowControl(c.cfg.MaxBuffers, c.cfg.initialCredits())
	s.flow.SetOpen(true)
	s.cmd = newCommandWriter(s.ctrl, c.con)
	s.upCmd = s.cmd
	if s.upload != nil {
		s.upCmd = newCommandWriter(s.upload, c.con)
	}

	var reader machine.Telemetry = newStatusReader(c.cfg.Name, s.ctrl, s.flow, s.cmd, c.con)
	c.sess = s
	go func() {
		reader.Run()
		close(s.done)
		// a reader that ended on its own takes the session down with it
		c.closeSession(s)
	}()

	return nil
}

// Close stops any upload, tears down flow control and releases the
// endpoints. It returns once both loops have ended.
func (c *Controller) Close() machine.State {
	c.mx.Lock()
	s := c.sess
	c.mx.Unlock()
	if s != nil {
		c.closeSession(s)
	}
	return c.State()
}

// Shutdown closes the session and ends every subscription. The Controller
// must not be used afterwards.
func (c *Controller) Shutdown() {
	c.Close()
	c.bus.Close()
}

func (c *Controller) closeSession(s *session) {
	c.mx.Lock()
	if c.sess != s {
		c.mx.Unlock()
		return
	}
	if s.flow.IsRunning() {
		c.stopLocked(s)
	}
	s.flow.Teardown()
	c.sess = nil
	j := c.job

	s.ctrl.Close()
	if s.upload != nil {
		s.upload.Close()
	}
	c.mx.Unlock()

	<-s.done
	if j != nil {
		<-j.done
	}
	c.con.emit(machine.SeverityInfo, "%s closing port %s... done", c.cfg.Name, c.cfg.Port)
}

// Start sends the upload handshake and begins streaming src. If the session
// is not open or already running, src is closed and nothing happens.
func (c *Controller) Start(src machine.UploadSource) machine.State {
	c.mx.Lock()
	defer c.mx.Unlock()

	s := c.sess
	if s == nil || s.flow.IsRunning() {
		src.Close()
		return c.stateLocked()
	}
	if prev := c.job; prev != nil {
		// a stopped job may still be unwinding
		c.mx.Unlock()
		<-prev.done
		c.mx.Lock()
		if c.sess != s || s.flow.IsRunning() {
			src.Close()
			return c.stateLocked()
		}
	}

	s.cmd.Send(cmdVerboseStatus)
	s.cmd.Send(cmdStatusReportSetup)
	s.flow.Reset(c.cfg.initialCredits())
	s.flow.SetRunning(true)

	port := c.cfg.Port
	if c.cfg.DualPort() {
		port = c.cfg.UploadPort
	}
	up := newUploadStreamer(c.cfg.Name, port, s.flow, src, s.upCmd, c.con)
	j := &job{done: make(chan struct{})}
	c.job = j
	go func() {
		res := up.Run()
		err := src.Close()
		if err != nil {
			c.con.emit(machine.SeverityWarning, "%s close upload source: %v", c.cfg.Name, err)
		}
		close(j.done)
		c.finishJob(s, j, res)
	}()

	return c.stateLocked()
}

// StartFile opens name and starts streaming it.
func (c *Controller) StartFile(name string) machine.State {
	if !c.State().Open {
		return c.State()
	}
	src, err := machine.OpenFileSource(name)
	if err != nil {
		c.con.emit(machine.SeverityError, "%s upload: %v", c.cfg.Name, err)
		c.con.publish(machine.JobResult{State: machine.JobFailed, Err: err})
		return c.State()
	}
	return c.Start(src)
}

func (c *Controller) finishJob(s *session, j *job, res machine.JobResult) {
	c.mx.Lock()
	if c.job == j {
		c.job = nil
		s.flow.SetRunning(false)
		s.flow.SetPaused(false)
		s.flow.ReleaseClaim()
	}
	c.mx.Unlock()

	c.con.publish(res)
}

// Stop ends the running upload. It returns immediately; the streamer
// observes the request on its own.
func (c *Controller) Stop() machine.State {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.sess != nil && c.sess.flow.IsRunning() {
		c.stopLocked(c.sess)
	}
	return c.stateLocked()
}

func (c *Controller) stopLocked(s *session) {
	s.flow.SetRunning(false)
	s.flow.Interrupt()
	s.flow.ReleaseClaim()
	if s.flow.IsPaused() {
		s.flow.SetPaused(false)
	}
}

// Pause holds the upload before its next line.
func (c *Controller) Pause() machine.State {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.sess != nil && c.sess.flow.IsRunning() {
		c.sess.flow.SetPaused(true)
	}
	return c.stateLocked()
}

// Resume continues a paused upload.
func (c *Controller) Resume() machine.State {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.sess != nil && c.sess.flow.IsPaused() {
		c.sess.flow.SetPaused(false)
	}
	return c.stateLocked()
}

// Send writes an ad hoc command on the control endpoint.
func (c *Controller) Send(line string) error {
	c.mx.Lock()
	s := c.sess
	c.mx.Unlock()
	if s == nil {
		return ErrNotOpen
	}
	s.cmd.Send(line)
	return nil
}
