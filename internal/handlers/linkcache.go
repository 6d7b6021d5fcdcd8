package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type invalidateRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

// InvalidateLinks drops cached verdicts for one URL or a whole domain.
// In-flight verifications are unaffected and will re-populate the cache.
func (h HandlerSet) InvalidateLinks(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	switch {
	case req.URL != "":
		h.links.Invalidate(c.Request.Context(), req.URL)
		c.JSON(http.StatusOK, gin.H{"removed": 1})
	case req.Domain != "":
		removed := h.links.InvalidateDomain(c.Request.Context(), req.Domain)
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "url_or_domain_required"})
	}
}
