package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mastercactapus/g2stream/machine"
	"github.com/spf13/cobra"
)

var (
	errAborted    = errors.New("upload aborted")
	errNotStarted = errors.New("upload not started")
)

var streamCmd = &cobra.Command{
	Use:   "stream FILE",
	Short: "Upload a G-code file and wait for it to finish",
	Long: `Open the controller, stream FILE line by line under queue report flow
control, and close the port once the upload ends.

The first Ctrl+C stops the upload; the exit status is non-zero unless every
line was sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	events, unsubscribe := c.Subscribe(4096)
	defer unsubscribe()

	err = c.Open()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	return streamFile(c, events, args[0], sig, cmd.OutOrStdout())
}

// streamFile starts an upload of name and waits for its result. A job that
// never started publishes no result, so it is reported here instead.
func streamFile(m Machine, events <-chan interface{}, name string, sig <-chan os.Signal, out io.Writer) error {
	st := m.StartFile(name)
	if !st.Start {
		if !st.Open {
			return fmt.Errorf("%w: port closed", errNotStarted)
		}
		return fmt.Errorf("%w: %s", errNotStarted, name)
	}
	return waitUpload(events, sig, m.Stop, out)
}

// waitUpload echoes controller output until a JobResult arrives.
func waitUpload(events <-chan interface{}, sig <-chan os.Signal, stop func() machine.State, out io.Writer) error {
	start := time.Now()
	for {
		select {
		case <-sig:
			log.Warn("interrupted, stopping upload")
			stop()
		case e, ok := <-events:
			if !ok {
				return errors.New("event stream closed")
			}
			switch e := e.(type) {
			case machine.Line:
				fmt.Fprintln(out, e)
			case machine.Progress:
				log.WithField("line", e.Line).Debug(e.Text)
			case machine.JobResult:
				l := log.WithField("lines", e.Lines).WithField("elapsed", time.Since(start).Round(time.Millisecond))
				switch e.State {
				case machine.JobCompleted:
					l.Info("upload complete")
					return nil
				case machine.JobFailed:
					return fmt.Errorf("upload failed after %d lines: %w", e.Lines, e.Err)
				default:
					return fmt.Errorf("%w after %d lines", errAborted, e.Lines)
				}
			}
		}
	}
}
