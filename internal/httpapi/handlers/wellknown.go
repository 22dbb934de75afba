package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/timgst1/policyd/internal/wellknown"
)

// WellKnown serves the discovery document. The ETag is the registry
// fingerprint so clients can poll with If-None-Match.
type WellKnown struct {
	Registry *wellknown.Registry
	Log      *slog.Logger
}

func (h WellKnown) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fp, err := h.Registry.Fingerprint()
	if err != nil {
		WriteError(w, h.Log, "/.well-known/policy-configuration", err)
		return
	}
	etag := `"` + fp + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"configuration": h.Registry.Configuration()})
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
