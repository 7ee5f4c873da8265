package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	assert := require.New(t)
	gin.SetMode(gin.TestMode)

	router := newRouter()
	setupRoutes(router, slog.New(slog.NewJSONHandler(os.Stderr, nil)), nil, nil, nil, nil)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	assert.NoError(err)
	router.ServeHTTP(w, req)

	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("OK", w.Body.String())
	assert.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
}
