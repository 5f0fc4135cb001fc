package tinyg

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/mastercactapus/g2stream/machine"
)

// Kind classifies an inbound line by its first non-blank character.
type Kind int

const (
	KindEmpty Kind = iota
	KindStatus
	KindData
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindStatus:
		return "status"
	case KindData:
		return "data"
	}
	return "text"
}

// Classify returns KindStatus for `{`, KindData for `[`, KindEmpty for blank
// lines and KindText for everything else.
func Classify(line string) Kind {
	line = strings.TrimSpace(line)
	if line == "" {
		return KindEmpty
	}
	switch line[0] {
	case '{':
		return KindStatus
	case '[':
		return KindData
	}
	return KindText
}

// ParseStatusReport decodes a JSON object line.
//
// The queue report is looked up at the top level and inside the `r`
// (response) and `sr` (status report) envelopes.
func ParseStatusReport(line string) (*machine.StatusReport, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal([]byte(line), &fields)
	if err != nil {
		return nil, err
	}

	return &machine.StatusReport{
		Fields:      fields,
		QueueReport: queueReport(fields),
	}, nil
}

func queueReport(fields map[string]json.RawMessage) *int {
	if n, ok := intField(fields, "qr"); ok {
		return &n
	}
	for _, key := range []string{"r", "sr"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var sub map[string]json.RawMessage
		if json.Unmarshal(raw, &sub) != nil {
			continue
		}
		if n, ok := intField(sub, "qr"); ok {
			return &n
		}
	}
	return nil
}

func intField(fields map[string]json.RawMessage, key string) (int, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) != nil {
		return 0, false
	}
	// float to int conversion is undefined outside the int range
	if f > math.MaxInt32 {
		f = math.MaxInt32
	} else if f < 0 {
		f = 0
	}
	return int(f), true
}
