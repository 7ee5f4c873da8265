package handlers

import (
	"net/http"
	"testing"

	"github.com/meghashyamc/ragconsole/services/model"
	"github.com/stretchr/testify/require"
)

func TestModelHandlers(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	w := makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/model/status", nil)
	assert.Equal(http.StatusOK, w.Code)
	status := decodeBody[model.Status](assert, w)
	assert.False(status.IsLoaded)
	assert.NotEmpty(status.Handshake)

	steps := []struct {
		method          string
		endpoint        string
		expectedMessage string
		expectedLoaded  bool
	}{
		{http.MethodPost, "/api/model/unload", "no model is loaded, nothing to unload", false},
		{http.MethodPost, "/api/model/load", "model loaded successfully: ", true},
		{http.MethodPost, "/api/model/load", "model is already loaded, skipping reload", true},
		{http.MethodPost, "/api/model/unload", "model unloaded, runtime resources released", false},
	}

	for _, step := range steps {
		w := makeTestHTTPRequest(server.router, assert, step.method, step.endpoint, nil)
		assert.Equal(http.StatusOK, w.Code)
		body := decodeBody[messageResponse](assert, w)
		assert.Contains(body.Message, step.expectedMessage)

		w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/model/status", nil)
		assert.Equal(step.expectedLoaded, decodeBody[model.Status](assert, w).IsLoaded)
	}
}
