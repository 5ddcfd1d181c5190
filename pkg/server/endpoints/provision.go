package endpoints

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doodlesbykumbi/identity-in-go/pkg/provisioning"
	"github.com/doodlesbykumbi/identity-in-go/pkg/server"
)

// ProvisionRequest is the body of PUT /tenants/{tenant}/provision
type ProvisionRequest struct {
	// PasswordHash is the standard base64 encoding of the superuser password hash
	PasswordHash string `json:"password_hash"`
}

// RegisterProvisioningEndpoints registers the tenant provisioning endpoint
func RegisterProvisioningEndpoints(s *server.Server) {
	s.Router.HandleFunc("/tenants/{tenant}/provision", handleProvision(s.Provisioner)).Methods("PUT")
}

func handleProvision(provisioner server.Provisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := tenantFromPath(r)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid tenant")
			return
		}

		var req ProvisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		passwordHash, err := base64.StdEncoding.DecodeString(req.PasswordHash)
		if err != nil || len(passwordHash) == 0 {
			respondWithError(w, http.StatusBadRequest, "password_hash must be non-empty base64")
			return
		}

		sigs, err := provisioner.Provision(r.Context(), tenantID, passwordHash)
		if err != nil {
			status, message := provisionErrorResponse(err)
			respondWithError(w, status, message)
			return
		}

		respondWithJSON(w, http.StatusOK, sigs)
	}
}

// provisionErrorResponse maps a Provision error to a status and a message
// that never carries the underlying cause.
func provisionErrorResponse(err error) (int, string) {
	if errors.Is(err, provisioning.ErrInvalidRequest) {
		return http.StatusBadRequest, err.Error()
	}

	kind, ok := provisioning.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "provisioning failed"
	}

	switch kind {
	case provisioning.AlreadyProvisioning:
		return http.StatusConflict, err.Error()
	case provisioning.SchemaNotReady:
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, "provisioning failed"
	}
}
