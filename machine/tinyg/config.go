package tinyg

import (
	"errors"
	"fmt"

	"github.com/mastercactapus/g2stream/endpoint"
)

// DefaultMaxBuffers is the TinyG2 planner queue depth.
const DefaultMaxBuffers = 28

const (
	cmdVerboseStatus        = `{"sv":1}`
	cmdStatusReportSetup    = `{sr:{line:t,posx:t,posy:t,posz:t,vel:t,feed:t,unit:t,qr:t}}`
	cmdSuppressQueueReports = `{"qr:n"}`
)

// Config is the immutable description of one session.
type Config struct {
	// Name labels console messages.
	Name string

	// Port is the control endpoint address.
	Port string

	// UploadPort, if set, carries uploaded lines on a second endpoint.
	UploadPort string

	EOL    endpoint.EOL
	Baud   int
	Driver endpoint.Driver

	// MaxBuffers is the controller's command buffer depth.
	MaxBuffers int

	// ReservedBuffers are slots kept free for ad hoc commands; a job starts
	// with MaxBuffers-ReservedBuffers credits.
	ReservedBuffers int
}

// DualPort reports whether uploads use their own endpoint.
func (cfg Config) DualPort() bool { return cfg.UploadPort != "" }

// Validate checks the configuration and fills in defaults.
func (cfg Config) Validate() (Config, error) {
	if cfg.Port == "" {
		return cfg, errors.New("port is required")
	}
	if cfg.Name == "" {
		cfg.Name = "TinyG2"
	}
	if cfg.MaxBuffers == 0 {
		cfg.MaxBuffers = DefaultMaxBuffers
	}
	if cfg.MaxBuffers < 1 {
		return cfg, fmt.Errorf("max buffers must be positive, got %d", cfg.MaxBuffers)
	}
	if cfg.ReservedBuffers < 0 || cfg.ReservedBuffers >= cfg.MaxBuffers {
		return cfg, fmt.Errorf("reserved buffers must be in [0,%d), got %d", cfg.MaxBuffers, cfg.ReservedBuffers)
	}
	if cfg.UploadPort == cfg.Port {
		return cfg, errors.New("upload port must differ from control port")
	}
	return cfg, nil
}

func (cfg Config) initialCredits() int { return cfg.MaxBuffers - cfg.ReservedBuffers }

func (cfg Config) endpointOptions() endpoint.Options {
	return endpoint.Options{Baud: cfg.Baud, EOL: cfg.EOL, Driver: cfg.Driver}
}
