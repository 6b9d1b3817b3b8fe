// Package metrics exposes the daemon's operational counters and the
// Prometheus scrape endpoint.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	AuctionsStarted  = metrics.NewCounter("auction_started_total")
	AuctionsStopped  = metrics.NewCounter("auction_stopped_total")
	AuctionsExpired  = metrics.NewCounter("auction_expired_total")
	AuctionsSold     = metrics.NewCounter("auction_sold_total")
	BidsAccepted     = metrics.NewCounter("auction_bids_accepted_total")
	BidsRejected     = metrics.NewCounter("auction_bids_rejected_total")
	RollbacksApplied = metrics.NewCounter("auction_rollbacks_total")
	LastCallPings    = metrics.NewCounter("auction_last_call_pings_total")
	SweepErrors      = metrics.NewCounter("auction_sweep_errors_total")
)

// MetricsServer serves the /metrics scrape endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server. addr may be empty; ListenAndServe is then
// a no-op.
func New(addr string) *MetricsServer {
	if addr == "" {
		return &MetricsServer{}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
