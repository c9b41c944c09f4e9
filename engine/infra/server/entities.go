package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/core"
	"github.com/compozy/catalog/engine/entity"
	"github.com/compozy/catalog/engine/infra/server/router"
)

// ValidationResult is returned by the validate endpoint.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Entity *entity.Entity `json:"entity,omitempty"`
	Error  map[string]any `json:"error,omitempty"`
}

type EntityListResponse struct {
	Entities []entity.Ref `json:"entities"`
	Total    int          `json:"total"`
}

// validateEntity handles POST /entities/validate.
//
// @Summary Validate entity
// @Description Normalize and validate an entity without storing it.
// @Tags entities
// @Accept json
// @Produce json
// @Success 200 {object} router.Response{data=server.ValidationResult} "Validation outcome"
// @Failure 400 {object} core.Problem "Malformed entity document"
// @Router /entities/validate [post]
func (s *Server) validateEntity(c *gin.Context) {
	e, ok := decodeEntity(c)
	if !ok {
		return
	}
	processed, err := s.pipeline.Process(c.Request.Context(), e)
	if err != nil {
		router.RespondOK(c, "entity rejected", ValidationResult{Valid: false, Error: errorBody(err)})
		return
	}
	router.RespondOK(c, "entity valid", ValidationResult{Valid: true, Entity: processed})
}

// createEntity handles POST /entities.
//
// @Summary Store entity
// @Description Validate an entity and store it, replacing any previous version.
// @Tags entities
// @Accept json
// @Produce json
// @Success 201 {object} router.Response{data=entity.Entity} "Entity stored"
// @Header 201 {string} ETag "Strong entity tag of the stored entity"
// @Failure 400 {object} core.Problem "Malformed entity document"
// @Failure 422 {object} core.Problem "Entity rejected"
// @Router /entities [post]
func (s *Server) createEntity(c *gin.Context) {
	ctx := c.Request.Context()
	e, ok := decodeEntity(c)
	if !ok {
		return
	}
	processed, err := s.pipeline.Process(ctx, e)
	if err != nil {
		router.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	if _, err := s.store.Put(ctx, processed); err != nil {
		router.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	stored, etag, err := s.store.Get(ctx, processed.Ref())
	if err != nil {
		router.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	ref := stored.Ref()
	c.Header("ETag", fmt.Sprintf("%q", etag))
	c.Header("Location", fmt.Sprintf("%s/entities/by-name/%s/%s/%s", APIPrefix, ref.Kind, ref.Namespace, ref.Name))
	router.RespondCreated(c, "entity stored", stored)
}

// listEntities handles GET /entities.
//
// @Summary List entities
// @Tags entities
// @Produce json
// @Param kind query string false "Only list entities of this kind (case-insensitive)"
// @Success 200 {object} router.Response{data=server.EntityListResponse} "Entities listed"
// @Router /entities [get]
func (s *Server) listEntities(c *gin.Context) {
	refs, err := s.store.List(c.Request.Context(), c.Query("kind"))
	if err != nil {
		router.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	router.RespondOK(c, "entities listed", EntityListResponse{Entities: refs, Total: len(refs)})
}

// getEntity handles GET /entities/by-name/{kind}/{namespace}/{name}.
//
// @Summary Get entity
// @Tags entities
// @Produce json
// @Success 200 {object} router.Response{data=entity.Entity} "Entity retrieved"
// @Header 200 {string} ETag "Strong entity tag"
// @Failure 404 {object} core.Problem "Entity not found"
// @Router /entities/by-name/{kind}/{namespace}/{name} [get]
func (s *Server) getEntity(c *gin.Context) {
	ref := refFromPath(c)
	e, etag, err := s.store.Get(c.Request.Context(), ref)
	if err != nil {
		respondStoreError(c, ref, err)
		return
	}
	quoted := fmt.Sprintf("%q", etag)
	c.Header("ETag", quoted)
	if c.GetHeader("If-None-Match") == quoted {
		c.Status(http.StatusNotModified)
		return
	}
	router.RespondOK(c, "entity retrieved", e)
}

// deleteEntity handles DELETE /entities/by-name/{kind}/{namespace}/{name}.
//
// @Summary Delete entity
// @Tags entities
// @Success 204 "Entity deleted or absent"
// @Router /entities/by-name/{kind}/{namespace}/{name} [delete]
func (s *Server) deleteEntity(c *gin.Context) {
	ref := refFromPath(c)
	if err := s.store.Delete(c.Request.Context(), ref); err != nil {
		respondStoreError(c, ref, err)
		return
	}
	router.RespondNoContent(c)
}

func refFromPath(c *gin.Context) entity.Ref {
	return entity.NewRef(c.Param("kind"), c.Param("namespace"), c.Param("name"))
}

func decodeEntity(c *gin.Context) (*entity.Entity, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			router.RespondProblemWithCode(c, http.StatusRequestEntityTooLarge, router.ErrPayloadTooLargeCode,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		router.RespondProblemWithCode(c, http.StatusBadRequest, router.ErrBadRequestCode, "failed to read request body")
		return nil, false
	}
	e, err := entity.DecodeJSON(bytes.NewReader(raw))
	if err != nil {
		router.RespondError(c, http.StatusBadRequest, err)
		return nil, false
	}
	return e, true
}

func respondStoreError(c *gin.Context, ref entity.Ref, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		router.RespondProblemWithCode(c, http.StatusNotFound, router.ErrNotFoundCode,
			fmt.Sprintf("entity %s not found", ref))
		return
	}
	router.RespondError(c, http.StatusInternalServerError, err)
}

func errorBody(err error) map[string]any {
	var coded *core.Error
	if errors.As(err, &coded) {
		return coded.AsMap()
	}
	return map[string]any{"message": err.Error()}
}
