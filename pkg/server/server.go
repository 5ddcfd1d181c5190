package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// Provisioner is the operation the provisioning endpoint drives
type Provisioner interface {
	Provision(ctx context.Context, tenantID string, passwordHash []byte) (model.SignatureSet, error)
}

type Server struct {
	Provisioner Provisioner
	SigningKeys store.SigningKeyStore
	HealthStore store.HealthStore
	Gatherer    prometheus.Gatherer
	Router      *mux.Router
	srv         *http.Server
}

// NewServer wires the HTTP surface. health may be nil when the stores are
// in memory; gatherer defaults to the Prometheus default registry.
func NewServer(
	provisioner Provisioner,
	signingKeys store.SigningKeyStore,
	health store.HealthStore,
	gatherer prometheus.Gatherer,
	host string,
	port string,
) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Provisioning generates an RSA key, so allow longer than a plain read
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Provisioner: provisioner,
		SigningKeys: signingKeys,
		HealthStore: health,
		Gatherer:    gatherer,
		Router:      router,
		srv:         srv,
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// StartWithListener serves on an existing listener
func (s *Server) StartWithListener(l net.Listener) error {
	return s.srv.Serve(l)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
