package handler

import (
	"net/http"

	"github.com/web3-frozen/aptos-yield-monitor/internal/monitor"
)

// Status lists the background refresh jobs.
func Status(engine *monitor.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if job := r.URL.Query().Get("job"); job != "" {
			s := engine.GetStatus(job)
			if s == nil {
				http.Error(w, `{"error":"unknown job"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, s)
			return
		}
		writeJSON(w, http.StatusOK, engine.Statuses())
	}
}
