package endpoints

import (
	"net/http"
	"os"

	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// StatusResponse is the body of GET /
type StatusResponse struct {
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the status endpoint
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus(s.HealthStore)).Methods("GET")
}

func handleStatus(health store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("IDENTITY_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}

		resp := StatusResponse{Version: version, Database: "in-memory"}
		if health != nil {
			if err := health.CheckConnectivity(r.Context()); err != nil {
				resp.Database = "unavailable"
				respondWithJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
			resp.Database = "ok"
		}

		respondWithJSON(w, http.StatusOK, resp)
	}
}
