package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"artkeeper/internal/assets"
	"artkeeper/internal/imaging"
	"artkeeper/internal/models"
	"artkeeper/internal/repository"
	"artkeeper/internal/service"
)

type compositeRequest struct {
	ItemID     string   `json:"itemId"`
	SourceURL  string   `json:"sourceUrl"`
	SourcePath string   `json:"sourcePath"`
	Targets    []string `json:"targets"`
	Watermarks []string `json:"watermarks"`
	Crop       bool     `json:"crop"`
}

type planRequest struct {
	Target     string   `json:"target"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Watermarks []string `json:"watermarks"`
	Crop       bool     `json:"crop"`
}

func (h HandlerSet) Composite(c *gin.Context) {
	var req compositeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.ItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id_required"})
		return
	}
	if req.SourceURL == "" && req.SourcePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_required"})
		return
	}

	targets, err := parseTargets(req.Targets)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	watermarks, err := parseWatermarks(req.Watermarks)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.artwork.Composite(c.Request.Context(), service.CompositeInput{
		ItemID:     req.ItemID,
		SourceURL:  req.SourceURL,
		SourcePath: req.SourcePath,
		Targets:    targets,
		Watermarks: watermarks,
		Crop:       req.Crop,
	})
	if err != nil {
		h.compositeError(c, req.ItemID, err)
		return
	}

	outputs := make(map[string]string, len(result.Outputs))
	for kind, path := range result.Outputs {
		outputs[string(kind)] = path
	}
	artifacts := make(map[string]artifactResponse, len(result.Updated))
	for kind, art := range result.Updated {
		artifacts[string(kind)] = toArtifactResponse(art)
	}

	c.JSON(http.StatusOK, gin.H{
		"outputs":   outputs,
		"artifacts": artifacts,
	})
}

func (h HandlerSet) CompositePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dimensions_required"})
		return
	}

	kind, err := parseTarget(req.Target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	watermarks, err := parseWatermarks(req.Watermarks)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.artwork.PlanPreview(kind, req.Width, req.Height, watermarks, req.Crop)
	if err != nil {
		if errors.Is(err, assets.ErrAssetMissing) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "badge_asset_missing"})
			return
		}
		h.log.Error().Err(err).Msg("plan preview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "plan_failed"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h HandlerSet) compositeError(c *gin.Context, itemID string, err error) {
	var decodeErr *imaging.DecodeError
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "item_not_found"})
	case errors.As(err, &decodeErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "source_not_decodable"})
	case errors.Is(err, assets.ErrAssetMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "badge_asset_missing"})
	default:
		h.log.Error().Err(err).Str("item_id", itemID).Msg("composite failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "composite_failed"})
	}
}

func parseTargets(raw []string) ([]models.ArtifactKind, error) {
	if len(raw) == 0 {
		return nil, errors.New("targets_required")
	}
	kinds := make([]models.ArtifactKind, 0, len(raw))
	for _, r := range raw {
		kind, err := parseTarget(r)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func parseTarget(raw string) (models.ArtifactKind, error) {
	for _, kind := range models.ArtifactKinds {
		if string(kind) == raw {
			return kind, nil
		}
	}
	return "", errors.New("unknown_target")
}

func parseWatermarks(raw []string) ([]imaging.Variant, error) {
	variants := make([]imaging.Variant, 0, len(raw))
	for _, r := range raw {
		if !imaging.KnownVariant(r) {
			return nil, errors.New("unknown_watermark")
		}
		variants = append(variants, imaging.Variant(r))
	}
	return variants, nil
}
