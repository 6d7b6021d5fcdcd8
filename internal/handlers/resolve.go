package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"artkeeper/internal/resolve"
)

type resolveRequest struct {
	Code         string `json:"code"`
	CID          string `json:"cid"`
	ForceRefresh bool   `json:"forceRefresh"`
}

func (h HandlerSet) StartResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.Code == "" && req.CID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code_or_cid_required"})
		return
	}

	// Detached: the resolution outlives this request and is polled by id.
	id := h.resolver.Start(context.Background(), resolve.Request{
		Code:         req.Code,
		CID:          req.CID,
		ForceRefresh: req.ForceRefresh,
	})

	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (h HandlerSet) ResolveState(c *gin.Context) {
	snapshot, ok := h.resolver.State(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "request_not_found"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
