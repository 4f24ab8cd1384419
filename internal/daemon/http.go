package daemon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runwatch/runwatch/internal/alarm"
)

type alarmStatus struct {
	State         alarm.State `json:"state"`
	Since         *time.Time  `json:"since,omitempty"`
	PeriodSeconds int         `json:"period_seconds"`
	Jobs          int         `json:"jobs"`
}

func (d *Daemon) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/alarms", func(w http.ResponseWriter, _ *http.Request) {
		status := alarmStatus{
			State:         d.dispatcher.State(),
			PeriodSeconds: int(d.dispatcher.Period().Seconds()),
			Jobs:          len(d.cfg.Jobs),
		}
		if t := d.dispatcher.LastTransition(); !t.IsZero() {
			status.Since = &t
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))

	return r
}
