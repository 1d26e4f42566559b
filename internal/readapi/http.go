package readapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Handler wraps an Adapter as the stdlib http.Handler cmd/rcawatch serves
// under /api (spec §6). It is additive to the contract in readapi.go, not
// part of it: the spec treats the HTTP surface itself as out of scope, so
// this file is the minimal stdlib-only transport needed to actually serve
// the contract from the run subcommand.
type Handler struct {
	adapter *Adapter
}

// NewHandler builds an http.Handler serving the C7 contract.
func NewHandler(adapter *Adapter) *Handler {
	return &Handler{adapter: adapter}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case r.URL.Path == "/api/spikes":
		writeJSON(w, http.StatusOK, h.adapter.Spikes())
	case strings.HasPrefix(r.URL.Path, "/api/spikes/"):
		idStr := strings.TrimPrefix(r.URL.Path, "/api/spikes/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid incident id", http.StatusBadRequest)
			return
		}
		inc, ok := h.adapter.Spike(id)
		if !ok {
			http.Error(w, "incident not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	case r.URL.Path == "/api/latest-rca":
		writeJSON(w, http.StatusOK, h.adapter.LatestRCA())
	case r.URL.Path == "/api/events":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, h.adapter.Events(limit))
	case r.URL.Path == "/api/telemetry/window":
		seconds, _ := strconv.Atoi(r.URL.Query().Get("seconds"))
		writeJSON(w, http.StatusOK, h.adapter.TelemetryWindow(seconds))
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
