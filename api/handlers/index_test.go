package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meghashyamc/ragconsole/services/index"
	"github.com/stretchr/testify/require"
)

func TestUploadHandler(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	t.Run("NotMultipart", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, "/api/docs/upload", bytes.NewBufferString(`{"files":[]}`))
		assert.NoError(err)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		assert.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("NoFiles", func(t *testing.T) {
		w := makeTestUploadRequest(server.router, assert, map[string]string{})
		assert.Equal(http.StatusNotAcceptable, w.Code)
		body := decodeBody[response](assert, w)
		assert.Equal([]string{"missing required field 'files'"}, body.Errors)
	})

	t.Run("PartialFailure", func(t *testing.T) {
		w := makeTestUploadRequest(server.router, assert, testFiles)
		assert.Equal(http.StatusOK, w.Code)

		result := decodeBody[index.UploadResult](assert, w)
		assert.False(result.Success)
		assert.Equal(3, result.SuccessCount)
		assert.Equal(1, result.FailCount)
		assert.Equal("payload.json: unsupported file format: json; ", result.Error)
	})

	t.Run("AllSucceed", func(t *testing.T) {
		w := makeTestUploadRequest(server.router, assert, map[string]string{"extra.md": "extra notes"})
		assert.Equal(http.StatusOK, w.Code)

		result := decodeBody[index.UploadResult](assert, w)
		assert.True(result.Success)
		assert.Equal(1, result.SuccessCount)
		assert.Zero(result.FailCount)
		assert.Empty(result.Error)
	})
}

func TestListDeleteClearHandlers(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	w := makeTestUploadRequest(server.router, assert, testFiles)
	assert.Equal(http.StatusOK, w.Code)

	type listResponse struct {
		Data   []index.IndexedDocument `json:"data"`
		Errors []string                `json:"errors"`
	}

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/docs", nil)
	assert.Equal(http.StatusOK, w.Code)
	listed := decodeBody[listResponse](assert, w)
	assert.Len(listed.Data, 3)

	deleteCases := []testCase{
		{name: "Existing", expectedStatus: http.StatusNoContent},
		{name: "AlreadyDeleted", expectedStatus: http.StatusNotFound},
	}
	for _, tc := range deleteCases {
		t.Run(tc.name, func(t *testing.T) {
			w := makeTestHTTPRequest(server.router, assert, http.MethodDelete, "/api/docs/budget.txt", nil)
			assert.Equal(tc.expectedStatus, w.Code)
		})
	}

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/docs", nil)
	listed = decodeBody[listResponse](assert, w)
	assert.Len(listed.Data, 2)

	w = makeTestHTTPRequest(server.router, assert, http.MethodDelete, "/api/docs/clear", nil)
	assert.Equal(http.StatusOK, w.Code)
	cleared := decodeBody[clearResponse](assert, w)
	assert.True(cleared.Success)
	assert.Equal("index cleared", cleared.Message)

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/docs", nil)
	listed = decodeBody[listResponse](assert, w)
	assert.Empty(listed.Data)

	w = makeTestHTTPRequest(server.router, assert, http.MethodGet, "/api/docs/search", map[string]string{"q": "budget"})
	assert.Equal(http.StatusOK, w.Code)
	assert.JSONEq(`[]`, w.Body.String())
}
