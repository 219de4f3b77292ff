package main

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/metrics"
)

// statsSource lists engine statistics for the HTTP API.
type statsSource interface {
	Stats() []handle.Stats
}

func newRouter(collector *metrics.Collector, src statsSource) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, src.Stats())
	}).Methods(http.MethodGet)
	r.HandleFunc("/stats/{engine:[0-9]+}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseUint(mux.Vars(req)["engine"], 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		for _, s := range src.Stats() {
			if uint64(s.Engine) == id {
				writeJSON(w, http.StatusOK, s)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown engine"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	return r
}

func newServer(addr string, collector *metrics.Collector, src statsSource) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      newRouter(collector, src),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isServerClosed(err error) bool {
	return stderrors.Is(err, http.ErrServerClosed)
}
