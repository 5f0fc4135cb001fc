package main

import (
	"encoding/json"
	"io"
	"io/ioutil"
	stdlog "log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/mastercactapus/g2stream/machine"
)

type api struct {
	http.Handler
	m           Machine
	dataDir     string
	sse         *sse.Server
	unsubscribe func()
}

func newAPI(m Machine, dir string) *api {
	r := mux.NewRouter()
	events, unsubscribe := m.Subscribe(1024)

	a := &api{
		Handler:     r,
		m:           m,
		dataDir:     dir,
		unsubscribe: unsubscribe,
		sse: sse.NewServer(&sse.Options{
			Logger: stdlog.New(ioutil.Discard, "", 0),
		}),
	}

	fs := http.StripPrefix("/data", http.FileServer(http.Dir(dir)))
	r.PathPrefix("/data/").Methods("GET", "HEAD").Handler(fs)
	r.PathPrefix("/data/").Methods("PUT").HandlerFunc(a.putFile)
	r.PathPrefix("/data/").Methods("DELETE").HandlerFunc(a.deleteFile)

	r.HandleFunc("/api/state", a.control(m.State)).Methods("GET")
	r.HandleFunc("/api/open", a.open).Methods("POST")
	r.HandleFunc("/api/close", a.control(m.Close)).Methods("POST")
	r.HandleFunc("/api/start", a.start).Methods("POST")
	r.HandleFunc("/api/stop", a.control(m.Stop)).Methods("POST")
	r.HandleFunc("/api/pause", a.control(m.Pause)).Methods("POST")
	r.HandleFunc("/api/resume", a.control(m.Resume)).Methods("POST")
	r.HandleFunc("/api/command", a.command).Methods("POST")

	r.PathPrefix("/events/").Handler(a.sse)
	go a.forward(events)

	return a
}

// Close stops forwarding events and disconnects SSE clients.
func (a *api) Close() {
	a.unsubscribe()
	a.sse.Shutdown()
}

type jobEvent struct {
	State machine.JobState
	Lines int
	Error string `json:",omitempty"`
}

func (a *api) forward(events <-chan interface{}) {
	for e := range events {
		switch e := e.(type) {
		case machine.Message:
			a.send("messages", e)
		case machine.StatusReport:
			a.send("reports", e.Fields)
		case machine.DataReport:
			a.sse.SendMessage("/events/data", sse.SimpleMessage(string(e)))
		case machine.Line:
			a.send("lines", e)
		case machine.Progress:
			a.send("progress", e)
		case machine.JobResult:
			ev := jobEvent{State: e.State, Lines: e.Lines}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			a.send("jobs", ev)
			a.send("state", a.m.State())
		}
	}
}

func (a *api) send(channel string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).WithField("channel", channel).Error("marshal event")
		return
	}
	a.sse.SendMessage("/events/"+channel, sse.SimpleMessage(string(data)))
}

func (a *api) writeState(w http.ResponseWriter, st machine.State) {
	a.send("state", st)
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(st)
	if err != nil {
		log.WithError(err).Error("encode state")
	}
}

func (a *api) control(fn func() machine.State) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		a.writeState(w, fn())
	}
}

func (a *api) open(w http.ResponseWriter, req *http.Request) {
	err := a.m.Open()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	a.writeState(w, a.m.State())
}

func (a *api) start(w http.ResponseWriter, req *http.Request) {
	file := req.FormValue("file")
	if file == "" {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	ok, name := safePath(a.dataDir, file)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	a.writeState(w, a.m.StartFile(name))
}

func (a *api) command(w http.ResponseWriter, req *http.Request) {
	data, err := ioutil.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		err = a.m.Send(line)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		log.WithField("name", name).Warn("invalid path")
		return false, ""
	}
	dir := base
	if dir == "" {
		dir = "."
	}
	return true, filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, strings.TrimPrefix(req.URL.Path, "/data"))
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.MkdirAll(filepath.Dir(name), 0755)
	if err != nil {
		log.WithError(err).WithField("dir", filepath.Dir(name)).Error("mkdir")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	f, err := os.Create(name)
	if err != nil {
		log.WithError(err).WithField("file", name).Error("create")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		log.WithError(err).WithField("file", name).Error("write")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, strings.TrimPrefix(req.URL.Path, "/data"))
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if os.IsNotExist(err) {
		http.NotFound(w, req)
		return
	}
	if err != nil {
		log.WithError(err).WithField("file", name).Error("delete")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
