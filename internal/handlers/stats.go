package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"proctrace/internal/config"
	"proctrace/internal/repository"
)

// StatsHandler serves the dashboard aggregates.
type StatsHandler struct {
	log   *zap.Logger
	cfg   *config.Manager
	stats *repository.Stats
}

func NewStatsHandler(log *zap.Logger, cfg *config.Manager, stats *repository.Stats) *StatsHandler {
	return &StatsHandler{log: log, cfg: cfg, stats: stats}
}

// Dashboard serves the headline numbers, the per-assessment rollup, daily
// volumes, and the current 7-day window against the previous one.
func (h *StatsHandler) Dashboard(c *gin.Context) {
	snapshot := h.cfg.Current()
	integrity := snapshot.Integrity
	ctx := c.Request.Context()

	headline, err := h.stats.TakeSnapshot(ctx, integrity.FocusLossLimit, integrity.BlurTimeLimitSec, integrity.PrintLimit)
	if err != nil {
		h.log.Error("Failed to take stats snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	byType, err := h.stats.ByTestType(ctx)
	if err != nil {
		h.log.Error("Failed to aggregate by test type", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	volume, err := h.stats.CompletionsByDay(ctx, 14)
	if err != nil {
		h.log.Error("Failed to aggregate daily volume", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	now := time.Now()
	current, err := h.stats.Window(ctx, now.AddDate(0, 0, -7), now,
		integrity.FocusLossLimit, integrity.BlurTimeLimitSec, integrity.PrintLimit)
	if err != nil {
		h.log.Error("Failed to aggregate current window", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	previous, err := h.stats.Window(ctx, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7),
		integrity.FocusLossLimit, integrity.BlurTimeLimitSec, integrity.PrintLimit)
	if err != nil {
		h.log.Error("Failed to aggregate previous window", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot":   headline,
		"byTestType": byType,
		"dailyVolume": gin.H{
			"days":   14,
			"points": volume,
		},
		"week": gin.H{
			"current":         current,
			"previous":        previous,
			"completedChange": percentChange(float64(previous.Completed), float64(current.Completed)),
			"scoreChange":     percentChange(previous.AverageScore, current.AverageScore),
			"passRateChange":  percentChange(previous.PassRate, current.PassRate),
			"flaggedChange":   percentChange(float64(previous.Flagged), float64(current.Flagged)),
		},
	})
}

// percentChange returns the relative change in percent. A zero baseline
// reads as +100% when the current value is non-zero, 0 otherwise.
func percentChange(previous, current float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / previous * 100
}
