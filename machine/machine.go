package machine

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Severity of a console Message.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Level maps the severity onto a logrus level.
func (s Severity) Level() logrus.Level {
	switch s {
	case SeverityDebug:
		return logrus.DebugLevel
	case SeverityWarning:
		return logrus.WarnLevel
	case SeverityError:
		return logrus.ErrorLevel
	}
	return logrus.InfoLevel
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Message is a leveled console message emitted by one of the roles.
type Message struct {
	Severity Severity
	Text     string
}

// StatusReport is a decoded `{...}` line from the controller.
//
// Only QueueReport is interpreted; every other field is forwarded as-is.
type StatusReport struct {
	Fields map[string]json.RawMessage

	// QueueReport is the free buffer count, if the report carried one.
	QueueReport *int
}

// DataReport is a `[...]` telemetry line forwarded verbatim.
type DataReport string

// Line is a raw line echoed from the controller (console text, acks, telemetry).
type Line string

// Progress is published right before an uploaded line is sent.
type Progress struct {
	Line int
	Text string
}

// JobState is the terminal state of an upload job.
type JobState int

const (
	JobCompleted JobState = iota
	JobAborted
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobCompleted:
		return "completed"
	case JobAborted:
		return "aborted"
	case JobFailed:
		return "failed"
	}
	return fmt.Sprintf("JobState(%d)", int(s))
}

func (s JobState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// JobResult is published once when an upload job ends.
type JobResult struct {
	State JobState
	Lines int
	Err   error `json:"-"`
}

// State is the externally visible set of session controls.
type State struct {
	Open  bool
	Start bool
	Pause bool
}
