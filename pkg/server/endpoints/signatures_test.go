package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

func signaturesRouter(keys *MockSigningKeyStore) *mux.Router {
	router := mux.NewRouter().UseEncodedPath()
	router.HandleFunc("/tenants/{tenant}/signatures/latest", handleLatestSignature(keys)).Methods("GET")
	return router
}

func TestHandleLatestSignature(t *testing.T) {
	t.Run("returns the public half only", func(t *testing.T) {
		key, err := slosilo.GenerateKey()
		require.NoError(t, err)

		keys := &MockSigningKeyStore{}
		keys.On("GetLatest", mock.Anything, "acme").Return(&store.SigningKeySet{
			TenantID:  "acme",
			Timestamp: "20240227T100000.000000000Z",
			Key:       key,
		}, nil)

		req := httptest.NewRequest("GET", "/tenants/acme/signatures/latest", nil)
		w := httptest.NewRecorder()
		signaturesRouter(keys).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.NotContains(t, w.Body.String(), "PRIVATE KEY")

		var sigs model.SignatureSet
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sigs))
		assert.Equal(t, "20240227T100000.000000000Z", sigs.Timestamp)
		assert.Equal(t, string(key.PublicPem()), sigs.PublicKeyPEM)
		assert.Equal(t, key.Exponent(), sigs.PublicKeyExp)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown tenant", store.ErrNotFound, http.StatusNotFound},
		{"schema missing", store.ErrSchemaNotReady, http.StatusServiceUnavailable},
		{"store down", errors.Join(store.ErrUnavailable, errors.New("dial tcp")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := &MockSigningKeyStore{}
			keys.On("GetLatest", mock.Anything, "acme").Return(nil, tt.err)

			req := httptest.NewRequest("GET", "/tenants/acme/signatures/latest", nil)
			w := httptest.NewRecorder()
			signaturesRouter(keys).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "dial tcp")
		})
	}
}
