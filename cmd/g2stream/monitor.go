package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mastercactapus/g2stream/machine"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print controller output and send commands typed on stdin",
	Long: `Open the control port and print every line the controller sends; status
reports are printed re-encoded. Lines read from stdin are sent as ad hoc commands. Press Ctrl+C to exit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	events, unsubscribe := c.Subscribe(1024)
	defer unsubscribe()

	err = c.Open()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	go func() {
		s := bufio.NewScanner(cmd.InOrStdin())
		for s.Scan() {
			err := c.Send(s.Text())
			if err != nil {
				log.WithError(err).Warn("send")
				return
			}
		}
	}()

	t := time.NewTicker(time.Second)
	defer t.Stop()
	out := cmd.OutOrStdout()
	for {
		select {
		case <-sig:
			return nil
		case <-t.C:
			if !c.State().Open {
				return fmt.Errorf("port %s closed", c.Config().Port)
			}
		case e, ok := <-events:
			if !ok {
				return nil
			}
			printEvent(out, e)
		}
	}
}

func printEvent(w io.Writer, e interface{}) {
	switch e := e.(type) {
	case machine.Line:
		fmt.Fprintln(w, e)
	case machine.StatusReport:
		data, err := json.Marshal(e.Fields)
		if err != nil {
			log.WithError(err).Error("marshal status report")
			return
		}
		fmt.Fprintf(w, "status %s\n", data)
	}
}
