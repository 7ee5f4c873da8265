package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/model"
)

func SetupModel(router *gin.Engine, logger logger.Logger, service *model.Service) {
	group := router.Group("/api/model")
	group.GET("/status", handleModelStatus(service))
	group.POST("/load", handleModelLoad(service, logger))
	group.POST("/unload", handleModelUnload(service, logger))
}

func handleModelStatus(service *model.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.Status())
	}
}

func handleModelLoad(service *model.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		message := service.Load(c.Request.Context())
		logger.Info("model load requested", "message", message)
		c.JSON(http.StatusOK, messageResponse{Message: message})
	}
}

func handleModelUnload(service *model.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		message := service.Unload()
		logger.Info("model unload requested", "message", message)
		c.JSON(http.StatusOK, messageResponse{Message: message})
	}
}
