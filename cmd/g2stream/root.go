package main

import (
	"os"

	"github.com/mastercactapus/g2stream/endpoint"
	"github.com/mastercactapus/g2stream/machine/tinyg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// connection flags
	portName   string
	uploadPort string
	baudRate   int
	eol        = endpoint.LF
	driver     string

	// flow control flags
	maxBuffers      int
	reservedBuffers int

	verbose bool
)

var log = logrus.NewEntry(logrus.StandardLogger())

var rootCmd = &cobra.Command{
	Use:   "g2stream",
	Short: "Stream G-code to a TinyG2 controller",
	Long: `g2stream feeds G-code files to a TinyG2 motion controller, keeping the
controller's planner queue full without overrunning it.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200] [--driver bugst|tarm]
  WebSocket: --port ws://host:port/path
  Dual port: --port /dev/ttyACM0 --upload-port /dev/ttyACM1

In dual port mode commands and status reports use --port while G-code
lines are sent on --upload-port.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Control port device or ws:// URL")
	rootCmd.PersistentFlags().StringVar(&uploadPort, "upload-port", "", "Separate port for G-code lines (dual port mode)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().Var(&eol, "eol", "Line terminator: CR, LF or CRLF")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", string(endpoint.DriverBugst), "Serial driver: bugst or tarm")
	rootCmd.PersistentFlags().IntVar(&maxBuffers, "buffers", tinyg.DefaultMaxBuffers, "Controller command buffer depth")
	rootCmd.PersistentFlags().IntVar(&reservedBuffers, "reserved", 0, "Buffers kept free for ad hoc commands")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log wire traffic")
}

func sessionConfig() tinyg.Config {
	return tinyg.Config{
		Port:            portName,
		UploadPort:      uploadPort,
		EOL:             eol,
		Baud:            baudRate,
		Driver:          endpoint.Driver(driver),
		MaxBuffers:      maxBuffers,
		ReservedBuffers: reservedBuffers,
	}
}

func newController() (*tinyg.Controller, error) {
	return tinyg.NewController(sessionConfig(), tinyg.WithLogger(log))
}
