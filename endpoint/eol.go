package endpoint

import (
	"bytes"
	"errors"
	"strings"
)

// EOL selects the line terminator used for both directions of an Endpoint.
type EOL int

const (
	CR EOL = iota
	LF
	CRLF
)

// ErrUnknownEOL is returned by ParseEOL for anything other than CR, LF or CRLF.
var ErrUnknownEOL = errors.New("unknown end of line (want CR, LF or CRLF)")

// ParseEOL accepts the names CR, LF and CRLF (case-insensitive).
func ParseEOL(name string) (EOL, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CR":
		return CR, nil
	case "LF":
		return LF, nil
	case "CRLF":
		return CRLF, nil
	}
	return LF, ErrUnknownEOL
}

func (e EOL) String() string {
	switch e {
	case CR:
		return "CR"
	case CRLF:
		return "CRLF"
	}
	return "LF"
}

// Bytes returns the literal terminator.
func (e EOL) Bytes() []byte {
	switch e {
	case CR:
		return []byte("\r")
	case CRLF:
		return []byte("\r\n")
	}
	return []byte("\n")
}

// Set and Type let an EOL be used directly as a command line flag.
func (e *EOL) Set(s string) error {
	v, err := ParseEOL(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}
func (e *EOL) Type() string { return "eol" }

// splitFunc returns a bufio.SplitFunc that cuts tokens on the terminator
// and drops it from the token.
func (e EOL) splitFunc() func(data []byte, atEOF bool) (advance int, token []byte, err error) {
	sep := e.Bytes()
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, sep); i >= 0 {
			return i + len(sep), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
