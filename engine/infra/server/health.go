package server

import (
	"github.com/gin-gonic/gin"

	"github.com/compozy/catalog/engine/infra/server/router"
	"github.com/compozy/catalog/pkg/version"
)

// health handles GET /healthz.
func (s *Server) health(c *gin.Context) {
	router.RespondOK(c, "Success", gin.H{
		"status":  "healthy",
		"version": version.GetVersion(),
	})
}
