// Package server provides the HTTP surface of the identity service.
//
// It uses gorilla/mux for routing and gorilla/handlers for access logs.
//
// # Server Setup
//
//	srv := server.NewServer(provisioner, signingKeys, health, nil, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
// The endpoints subpackage registers:
//
//   - PUT /tenants/{tenant}/provision - Provision a tenant
//   - GET /tenants/{tenant}/signatures/latest - Latest public signature set
//   - GET / - Status
//   - GET /metrics - Prometheus metrics
package server
