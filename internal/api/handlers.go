package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/forex-analyzer/internal/settings"
	"github.com/selivandex/forex-analyzer/pkg/logger"
	"github.com/selivandex/forex-analyzer/pkg/models"
)

type correlationsResponse struct {
	models.CorrelationsView
	NeedsConfiguration bool `json:"needsConfiguration"`
}

type costResponse struct {
	EstimatedCost float64 `json:"estimatedCost"`
	Enabled       bool    `json:"enabled"`
}

// settingsRequest is a partial update, omitted fields keep their value
type settingsRequest struct {
	OpenAIKey         *string `json:"openaiKey"`
	Model             *string `json:"model"`
	RefreshInterval   *int64  `json:"refreshInterval"`
	ShowCostEstimates *bool   `json:"showCostEstimates"`
}

func (r settingsRequest) apply(current models.Settings) models.Settings {
	updated := current
	// the masked key from GET echoed back means "unchanged"
	if r.OpenAIKey != nil && *r.OpenAIKey != models.MaskSecret(current.OpenAIKey) {
		updated.OpenAIKey = strings.TrimSpace(*r.OpenAIKey)
	}
	if r.Model != nil {
		updated.Model = strings.TrimSpace(*r.Model)
	}
	if r.RefreshInterval != nil {
		updated.RefreshInterval = *r.RefreshInterval
	}
	if r.ShowCostEstimates != nil {
		updated.ShowCostEstimates = *r.ShowCostEstimates
	}
	return updated
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.coordinator.Snapshot())
}

func (s *Server) handleNews(c *gin.Context) {
	c.JSON(http.StatusOK, s.coordinator.Snapshot().News)
}

func (s *Server) handleCorrelations(c *gin.Context) {
	snap := s.coordinator.Snapshot()
	c.JSON(http.StatusOK, correlationsResponse{
		CorrelationsView:   snap.Correlations,
		NeedsConfiguration: snap.NeedsConfiguration,
	})
}

func (s *Server) handleCost(c *gin.Context) {
	snap := s.coordinator.Snapshot()
	c.JSON(http.StatusOK, costResponse{
		EstimatedCost: snap.EstimatedCost,
		Enabled:       snap.ShowCost,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if !s.coordinator.Trigger() {
		c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings.Get().Masked())
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated := req.apply(s.settings.Get())
	if err := s.settings.Update(c.Request.Context(), updated); err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("failed to apply settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, s.settings.Get().Masked())
}
