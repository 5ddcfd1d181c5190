package endpoints

import (
	"errors"
	"net/http"

	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// RegisterSignaturesEndpoints registers the public signature set endpoint
func RegisterSignaturesEndpoints(s *server.Server) {
	s.Router.HandleFunc("/tenants/{tenant}/signatures/latest", handleLatestSignature(s.SigningKeys)).Methods("GET")
}

func handleLatestSignature(keys store.SigningKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFromPath(r)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid tenant")
			return
		}

		latest, err := keys.GetLatest(r.Context(), tenantID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "tenant has no signing key")
			return
		case errors.Is(err, store.ErrSchemaNotReady):
			respondWithError(w, http.StatusServiceUnavailable, "schema not ready")
			return
		case err != nil:
			respondWithError(w, http.StatusInternalServerError, "signing key lookup failed")
			return
		}

		sigs, err := latest.SignatureSet()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "signing key lookup failed")
			return
		}
		respondWithJSON(w, http.StatusOK, sigs)
	}
}
