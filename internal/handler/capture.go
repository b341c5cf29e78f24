package handler

import (
	"net/http"
	"time"

	"mood-insight/internal/logger"
	"mood-insight/internal/model"
	"mood-insight/internal/service"

	"github.com/gin-gonic/gin"
)

type CaptureHandler struct {
	captures *service.CaptureService
	moods    *service.MoodCache
}

func NewCaptureHandler(captures *service.CaptureService, moods *service.MoodCache) *CaptureHandler {
	return &CaptureHandler{captures: captures, moods: moods}
}

func (h *CaptureHandler) Create(c *gin.Context) {
	var req model.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	uid := c.GetInt("user_id")
	ctx := c.Request.Context()

	// freeze the display name now; a later mood rename must not rewrite history
	if err := h.moods.Refresh(ctx, uid); err != nil {
		logger.Warn("mood refresh failed, using cached entries", "err", err)
	}
	entry, ok := h.moods.GetByID(req.MoodID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mood"})
		return
	}

	capture, err := h.captures.Create(ctx, uid, req, entry.Name)
	if err != nil {
		logger.Error("create capture failed", "uid", uid, "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, capture)
}

func (h *CaptureHandler) List(c *gin.Context) {
	uid := c.GetInt("user_id")

	from, err := parseDay(c.Query("from"), time.Now().AddDate(0, 0, -30))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := parseDay(c.Query("to"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.Local)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 999999999, time.Local)
	captures, err := h.captures.ListRange(c.Request.Context(), uid, start, end)
	if err != nil {
		logger.Error("list captures failed", "uid", uid, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, captures)
}

func parseDay(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
