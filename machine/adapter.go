package machine

// A Channel accepts outbound command lines for a controller.
//
// Sends are best-effort: failures are reported as a Message, never returned.
type Channel interface {
	Send(line string)
}

// Telemetry consumes a controller's inbound stream until it ends.
type Telemetry interface {
	Run()
}

// An UploadSource yields the lines of an upload job in order.
//
// Next returns io.EOF once the source is exhausted.
type UploadSource interface {
	Next() (string, error)
	Close() error
}
