package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"artkeeper/internal/models"
	"artkeeper/internal/repository"
)

type artifactResponse struct {
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SizeKB    float64   `json:"sizeKb"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checkedAt"`
}

type itemResponse struct {
	ID     string           `json:"id"`
	Code   string           `json:"code"`
	Title  string           `json:"title"`
	Poster artifactResponse `json:"poster"`
	Fanart artifactResponse `json:"fanart"`
	Thumb  artifactResponse `json:"thumb"`
	Skip   bool             `json:"skip"`
}

func toArtifactResponse(a models.Artifact) artifactResponse {
	return artifactResponse{
		Path:      a.Path,
		Width:     a.Width,
		Height:    a.Height,
		SizeKB:    a.SizeKB,
		Status:    string(a.Status),
		CheckedAt: a.CheckedAt,
	}
}

func toItemResponse(item models.MediaItem) itemResponse {
	return itemResponse{
		ID:     item.ID,
		Code:   item.Code,
		Title:  item.Title,
		Poster: toArtifactResponse(item.Poster),
		Fanart: toArtifactResponse(item.Fanart),
		Thumb:  toArtifactResponse(item.Thumb),
		Skip:   item.Skip,
	}
}

func toItemResponses(items []models.MediaItem) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}

func (h HandlerSet) ClassifyItem(c *gin.Context) {
	id := c.Param("id")

	results, err := h.artwork.ClassifyAndStore(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item_not_found"})
			return
		}
		h.log.Error().Err(err).Str("item_id", id).Msg("classify failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classify_failed"})
		return
	}

	artifacts := make(map[string]artifactResponse, len(results))
	for kind, art := range results {
		artifacts[string(kind)] = toArtifactResponse(art)
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": artifacts})
}

func (h HandlerSet) MarkNoCandidate(c *gin.Context) {
	id := c.Param("id")

	if err := h.artwork.MarkNoCandidate(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item_not_found"})
			return
		}
		h.log.Error().Err(err).Str("item_id", id).Msg("mark no-candidate failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListLowQuality(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	items, err := h.artwork.LowQualityItems(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list low quality failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": toItemResponses(items)})
}

func (h HandlerSet) ListLatest(c *gin.Context) {
	limit := queryInt(c, "limit", h.cfg.Artwork.LatestCovers)

	items, err := h.artwork.LatestItems(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list latest failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": toItemResponses(items)})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
