package handler

import (
	"errors"
	"net/http"
	"sort"

	"mood-insight/internal/logger"
	"mood-insight/internal/model"
	"mood-insight/internal/service"

	"github.com/gin-gonic/gin"
)

type MoodHandler struct {
	moods *service.MoodService
	cache *service.MoodCache
}

func NewMoodHandler(moods *service.MoodService, cache *service.MoodCache) *MoodHandler {
	return &MoodHandler{moods: moods, cache: cache}
}

func (h *MoodHandler) List(c *gin.Context) {
	uid := c.GetInt("user_id")
	if err := h.cache.Refresh(c.Request.Context(), uid); err != nil {
		logger.Warn("mood refresh failed, serving cached entries", "uid", uid, "err", err)
	}
	entries := h.cache.Entries()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	c.JSON(http.StatusOK, entries)
}

func (h *MoodHandler) Create(c *gin.Context) {
	var req model.MoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	uid := c.GetInt("user_id")
	m, err := h.moods.CreateCustom(c.Request.Context(), uid, req)
	if err != nil {
		logger.Error("create mood failed", "uid", uid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	h.cache.Invalidate()
	c.JSON(http.StatusOK, m)
}

func (h *MoodHandler) Delete(c *gin.Context) {
	uid := c.GetInt("user_id")
	err := h.moods.SoftDelete(c.Request.Context(), uid, c.Param("id"))
	switch {
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not your mood"})
		return
	case err != nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "mood not found"})
		return
	}
	h.cache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
