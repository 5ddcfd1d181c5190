package endpoints

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// tenantFromPath returns the unescaped {tenant} route variable
func tenantFromPath(r *http.Request) (string, bool) {
	tenantID, err := url.PathUnescape(mux.Vars(r)["tenant"])
	if err != nil || tenantID == "" {
		return "", false
	}
	return tenantID, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON never lets intermediaries cache a response; signature sets
// change on key rotation.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		code = http.StatusInternalServerError
		response = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
