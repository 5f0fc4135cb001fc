package main

import (
	"net/http"

	"github.com/spf13/cobra"
)

var (
	addr    string
	dataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve a JSON/SSE API for uploading G-code files and driving the
controller from a browser.

  PUT|GET|DELETE /data/{name}     stored G-code files
  POST /api/{open,close,start,stop,pause,resume}
  POST /api/command               one command per body line
  GET  /api/state
  GET  /events/{messages,reports,data,lines,progress,jobs,state}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":9091", "Address to bind the server to")
	serveCmd.Flags().StringVar(&dataDir, "dir", "./data", "Data directory to use")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := newController()
	if err != nil {
		return err
	}
	defer c.Shutdown()

	a := newAPI(c, dataDir)
	defer a.Close()

	log.WithField("addr", addr).WithField("port", c.Config().Port).Info("listening")
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		log.WithField("remote", req.RemoteAddr).Debugf("%s %s", req.Method, req.URL.Path)
		a.ServeHTTP(w, req)
	}))
}
