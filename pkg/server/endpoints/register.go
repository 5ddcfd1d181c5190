package endpoints

import (
	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterProvisioningEndpoints(srv)
	RegisterSignaturesEndpoints(srv)
	RegisterStatusEndpoints(srv)
	RegisterMetricsEndpoint(srv)
}
