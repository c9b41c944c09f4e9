package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/catalog/engine/infra/monitoring"
	"github.com/compozy/catalog/engine/infra/server/middleware/size"
	"github.com/compozy/catalog/engine/infra/server/router"
	"github.com/compozy/catalog/pkg/logger"
)

const APIPrefix = "/api/v0"

func (s *Server) buildRouter(ctx context.Context) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.monitoring != nil {
		r.Use(s.monitoring.GinMiddleware())
	}
	r.Use(LoggerMiddleware(logger.FromContext(ctx)))
	r.NoRoute(func(c *gin.Context) {
		router.RespondProblemWithCode(c, http.StatusNotFound, router.ErrNotFoundCode, "route not found")
	})

	r.GET("/healthz", s.health)
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.GET(monitoring.DefaultPath, gin.WrapH(s.monitoring.ExporterHandler()))
	}

	api := r.Group(APIPrefix)
	entities := api.Group("/entities")
	entities.Use(size.BodySizeLimiter(maxEntityBodyBytes))
	entities.POST("/validate", s.validateEntity)
	entities.POST("", s.createEntity)
	entities.GET("", s.listEntities)
	entities.GET("/by-name/:kind/:namespace/:name", s.getEntity)
	entities.DELETE("/by-name/:kind/:namespace/:name", s.deleteEntity)
	return r
}
