package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/recordvault/recordvault/internal/vault"
)

// HistoryHandler exposes read-only HTTP endpoints for the backup history.
type HistoryHandler struct {
	store vault.Store
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store vault.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// Register mounts the history routes on the given router group.
func (h *HistoryHandler) Register(rg *gin.RouterGroup) {
	hg := rg.Group("/history")
	{
		hg.GET("", h.Overview)
		hg.GET("/:idx", h.GetSnapshot)
	}
}

// Overview handles GET /history — returns the backup count and the digest of
// the current record.
func (h *HistoryHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"entries":           h.store.HistoryLen(ctx),
		"current_integrity": h.store.Read(ctx).Integrity,
	})
}

// GetSnapshot handles GET /history/:idx — returns a single archived snapshot,
// oldest first.
func (h *HistoryHandler) GetSnapshot(c *gin.Context) {
	idxStr := c.Param("idx")
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	snap, err := h.store.HistoryAt(c.Request.Context(), idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.JSON(http.StatusOK, snap)
}
