package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/ragconsole/api/handlers"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/index"
	"github.com/meghashyamc/ragconsole/services/model"
	"github.com/meghashyamc/ragconsole/services/search"
	"github.com/meghashyamc/ragconsole/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, modelService *model.Service, indexService *index.Service, searchService *search.Service, validator *validation.Validator) {
	router.GET("/health", health())

	handlers.SetupModel(router, logger, modelService)
	handlers.SetupIndex(router, logger, indexService, validator)
	handlers.SetupSearch(router, logger, searchService, validator)

}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
