package endpoints

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
)

// RegisterMetricsEndpoint exposes the server's Prometheus gatherer on /metrics
func RegisterMetricsEndpoint(s *server.Server) {
	s.Router.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
}
