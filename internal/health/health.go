package health

import (
	"net/http"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz reports readiness: 200 once a dataset snapshot with at least one
// state vector has been published, 503 before that.
func Readyz(store *oem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		ds := store.Get()
		if ds == nil || len(ds.StateVectors) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("no dataset\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	}
}
