package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sdnyco/ichi/internal/repository"
	"github.com/sdnyco/ichi/pkg/response"
)

// PlaceContext 地点当前概况
// @Summary 地点概况（在场人数、可用锚定人数）
// @Tags 地点
// @Produce json
// @Param placeId path string true "地点ID"
// @Success 200 {object} response.Response{data=service.PlaceContext}
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/places/{placeId}/context [get]
func (h *Handler) PlaceContext(c *gin.Context) {
	pc, err := h.places.PlaceContext(c.Request.Context(), c.Param("placeId"))
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "place not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, pc)
}
