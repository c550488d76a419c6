package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"recipeshorts/internal/storage"
)

// RecipeHandler serves the archive of completed recipes.
type RecipeHandler struct {
	repo *storage.RecipeRepository
}

func NewRecipeHandler(repo *storage.RecipeRepository) *RecipeHandler {
	return &RecipeHandler{repo: repo}
}

// List はアーカイブ済みレシピ一覧を取得
func (h *RecipeHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 20
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			return errorJSON(c, http.StatusBadRequest, "invalid limit")
		}
		limit = min(parsed, 100)
	}

	recipes, err := h.repo.ListRecent(ctx, limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	total, err := h.repo.Count(ctx)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"recipes": recipes,
		"total":   total,
	})
}

// Get はvideo_idでレシピを取得
func (h *RecipeHandler) Get(c echo.Context) error {
	recipe, err := h.repo.GetByVideoID(c.Request().Context(), c.Param("video_id"))
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if recipe == nil {
		return errorJSON(c, http.StatusNotFound, "recipe not found")
	}
	return c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	videoID := c.Param("video_id")
	recipe, err := h.repo.GetByVideoID(ctx, videoID)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if recipe == nil {
		return errorJSON(c, http.StatusNotFound, "recipe not found")
	}
	if err := h.repo.Delete(ctx, videoID); err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
