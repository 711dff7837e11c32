package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recordvault/recordvault/internal/vault"
	"go.uber.org/zap"
)

// RecordHandler exposes the vault's record operations over HTTP/JSON.
type RecordHandler struct {
	store  vault.Store
	logger *zap.Logger
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(store vault.Store, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{store: store, logger: logger}
}

// Register mounts the record routes on the given router group.
func (h *RecordHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/", h.GetRecord)
	rg.POST("/", h.PutRecord)
	rg.GET("/backup", h.RestoreBackup)
	rg.GET("/verify", h.VerifyRecord)
}

// RegisterTamper mounts the fault-injection hook. Kept separate from Register
// so deployments can leave it unrouted.
func (h *RecordHandler) RegisterTamper(rg *gin.RouterGroup) {
	rg.POST("/tamper", h.TamperRecord)
}

// writeRequest is the payload for POST /. Hash is the digest the caller
// computed over Data; the store rejects the write if they disagree.
type writeRequest struct {
	Data string `json:"data"`
	Hash string `json:"hash" binding:"required"`
}

// GetRecord handles GET / — returns the current record. Always 200; the
// stored pair is served as-is, with no integrity validation.
func (h *RecordHandler) GetRecord(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Read(c.Request.Context()))
}

// PutRecord handles POST / — validates the claimed digest and commits the
// write, archiving the outgoing record.
func (h *RecordHandler) PutRecord(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with data and hash fields"})
		return
	}

	rec, err := h.store.Write(c.Request.Context(), req.Data, req.Hash)
	switch {
	case errors.Is(err, vault.ErrIntegrityCorrupted):
		h.logger.Warn("write rejected: authoritative record corrupted")
		RecordWriteRejection("integrity_corrupted")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, vault.ErrHashMismatch):
		RecordWriteRejection("hash_mismatch")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("write failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "write failed"})
		return
	}

	RecordWrite()
	SetHistoryGauge(float64(h.store.HistoryLen(c.Request.Context())))
	c.JSON(http.StatusOK, gin.H{
		"message": "record updated",
		"current": rec,
	})
}

// RestoreBackup handles GET /backup — pops the most recent snapshot and
// promotes it to current.
func (h *RecordHandler) RestoreBackup(c *gin.Context) {
	rec, err := h.store.Restore(c.Request.Context())
	if err != nil {
		if errors.Is(err, vault.ErrNoBackup) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("restore failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "restore failed"})
		return
	}

	RecordRestore()
	SetHistoryGauge(float64(h.store.HistoryLen(c.Request.Context())))
	c.JSON(http.StatusOK, gin.H{
		"message": "restored most recent backup",
		"current": rec,
	})
}

// VerifyRecord handles GET /verify — reports whether the stored record still
// satisfies its data↔digest binding. Read-only; does not change lazy
// detection on the write path.
func (h *RecordHandler) VerifyRecord(c *gin.Context) {
	if err := h.store.Verify(c.Request.Context()); err != nil {
		h.logger.Warn("record integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// tamperRequest is the payload for POST /tamper.
type tamperRequest struct {
	Data string `json:"data" binding:"required"`
}

// TamperRecord handles POST /tamper — the fault-injection hook. Overwrites
// the current payload while leaving the stored digest stale, producing
// exactly the inconsistency the verify/restore protocol exists to catch.
func (h *RecordHandler) TamperRecord(c *gin.Context) {
	var req tamperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with a data field"})
		return
	}

	rec := h.store.Tamper(c.Request.Context(), req.Data)
	RecordTamperInjection()
	c.JSON(http.StatusOK, gin.H{
		"message": "record tampered",
		"current": rec,
	})
}
