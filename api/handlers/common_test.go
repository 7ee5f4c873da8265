// Common test helpers
package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/ragconsole/config"
	"github.com/meghashyamc/ragconsole/db/kvdb"
	"github.com/meghashyamc/ragconsole/db/searchdb"
	"github.com/meghashyamc/ragconsole/db/vectordb"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/index"
	"github.com/meghashyamc/ragconsole/services/model"
	"github.com/meghashyamc/ragconsole/services/parse"
	"github.com/meghashyamc/ragconsole/services/search"
	"github.com/meghashyamc/ragconsole/validation"
	"github.com/stretchr/testify/require"
)

var testFiles = map[string]string{
	"budget.txt":   "The quarterly budget allocates funds to marketing and research.",
	"handbook.md":  "# Handbook\n\nEmployees must file expense reports within thirty days.",
	"roadmap.txt":  "Next quarter we ship the offline search console.",
	"payload.json": `{"key": "value"}`,
}

type testCase struct {
	name             string
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse any
}

type testServer struct {
	router       *gin.Engine
	modelService *model.Service
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions) *testServer {

	tempDir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("STORAGE_PATH", tempDir)
	t.Setenv("KVDB_PATH", filepath.Join(tempDir, "test.db"))

	modelPath := filepath.Join(tempDir, "model.bin")
	assert.NoError(os.WriteFile(modelPath, []byte("weights"), 0644), "could not write model file")
	t.Setenv("MODEL_PATH", modelPath)

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")
	searchDB, err := searchdb.New(testLogger, cfg)
	assert.NoError(err, "could not create search database")
	vectors, err := vectordb.New(testLogger, kvDB)
	assert.NoError(err, "could not create vector store")
	modelService, err := model.NewFromConfig(testLogger, cfg)
	assert.NoError(err, "could not create model service")
	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	indexService := index.New(testLogger, parse.New(testLogger), searchDB, vectors, kvDB, modelService, index.Options{
		Workers:     cfg.GetUploadWorkers(),
		MaxFileSize: int64(cfg.GetUploadMaxSizeMB()) << 20,
	})
	searchService := search.New(testLogger, searchDB, vectors, modelService, search.Options{
		Limit:            cfg.GetSearchLimit(),
		VectorCandidates: cfg.GetVectorCandidates(),
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupModel(router, testLogger, modelService)
	SetupIndex(router, testLogger, indexService, validator)
	SetupSearch(router, testLogger, searchService, validator)

	t.Cleanup(func() {
		modelService.Close()
		assert.NoError(searchDB.Close(), "could not close search database")
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	return &testServer{router: router, modelService: modelService}
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, queryParams map[string]string) *httptest.ResponseRecorder {

	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		values := url.Values{}
		for key, value := range queryParams {
			values.Set(key, value)
		}
		endpoint = endpoint + "?" + values.Encode()
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint)

	req, err := http.NewRequest(method, endpoint, nil)
	assert.NoError(err)

	router.ServeHTTP(w, req)

	return w
}

func makeTestUploadRequest(router *gin.Engine, assert *require.Assertions, files map[string]string) *httptest.ResponseRecorder {

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile(uploadFormField, name)
		assert.NoError(err)
		_, err = part.Write([]byte(content))
		assert.NoError(err)
	}
	assert.NoError(writer.Close())

	req, err := http.NewRequest(http.MethodPost, "/api/docs/upload", &body)
	assert.NoError(err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decodeBody[T any](assert *require.Assertions, w *httptest.ResponseRecorder) T {
	var decoded T
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &decoded), "could not decode body: %s", w.Body.String())
	return decoded
}
