package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/intake"
	"github.com/phambaophuc/product-studio/internal/services/orchestrator"
	"github.com/phambaophuc/product-studio/internal/services/preset"
	"github.com/phambaophuc/product-studio/internal/services/session"
	"go.uber.org/zap"
)

// === REQUEST PARSING ===

func (h *StudioHandler) getSession(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}

func (h *StudioHandler) parseMultipartFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	if err := c.Request.ParseMultipartForm(h.config.Intake.MaxFileSize); err != nil {
		return nil, fmt.Errorf("failed to parse form data: %v", err)
	}

	files := c.Request.MultipartForm.File[imagesParamKey]
	if len(files) == 0 {
		c.Request.MultipartForm.RemoveAll()
		return nil, fmt.Errorf("no images provided")
	}

	return files, nil
}

// === RESPONSE HANDLING ===

func (h *StudioHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *StudioHandler) respondIntakeError(c *gin.Context, err error) {
	var tooMany *intake.TooManyFilesError
	switch {
	case errors.As(err, &tooMany):
		h.respondError(c, http.StatusBadRequest, tooMany.Error())
	case errors.Is(err, intake.ErrUnreadable):
		h.respondError(c, http.StatusBadRequest, "Could not read one or more files.")
	default:
		h.logger.Error("Intake failed", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to process uploaded files")
	}
}

// respondRunError maps orchestrator preconditions to status codes. A
// blocked batch answers 402 with the upgrade prompt.
func (h *StudioHandler) respondRunError(c *gin.Context, err error) {
	var blocked *orchestrator.BlockedError
	switch {
	case errors.As(err, &blocked):
		c.JSON(http.StatusPaymentRequired, models.APIResponse{
			Success: false,
			Error:   blocked.Error(),
			Data: models.UpgradePrompt{
				Message: blocked.Error(),
				Current: blocked.Decision.Current,
				Limit:   blocked.Decision.Limit,
			},
		})
	case errors.Is(err, orchestrator.ErrNothingToProcess):
		h.respondError(c, http.StatusBadRequest, "Please upload at least one image.")
	case errors.Is(err, orchestrator.ErrRunInProgress):
		h.respondError(c, http.StatusConflict, "Please wait for the current batch to finish.")
	case errors.Is(err, preset.ErrUnknownPreset):
		h.respondError(c, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Failed to start run", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *StudioHandler) respondAttachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *StudioHandler) buildSessionView(sess *session.Session) models.SessionView {
	state := sess.Orchestrator.State()

	results := sess.Orchestrator.Results()
	processed := make([]string, 0, len(results))
	for _, r := range results {
		processed = append(processed, r.Filename)
	}

	images := sess.Orchestrator.Images()
	if images == nil {
		images = []models.UploadedImage{}
	}

	return models.SessionView{
		ID:           sess.ID,
		State:        state,
		ProgressText: state.ProgressText(),
		Images:       images,
		Processed:    processed,
		AllProcessed: sess.Orchestrator.AllProcessed(),
		Limits:       h.policy.Limits(),
	}
}

// === UTILITY METHODS ===

func (h *StudioHandler) checkServices(ctx context.Context) map[string]string {
	h.healthMu.RLock()
	defer h.healthMu.RUnlock()

	services := make(map[string]string, len(h.health))
	for name, check := range h.health {
		services[name] = check(ctx)
	}
	return services
}

func (h *StudioHandler) collectStats(ctx context.Context) map[string]interface{} {
	h.healthMu.RLock()
	defer h.healthMu.RUnlock()

	report := map[string]interface{}{
		"sessions": h.sessions.Len(),
	}
	for name, stats := range h.stats {
		values, err := stats(ctx)
		if err != nil {
			h.logger.Warn("Failed to collect stats", zap.String("service", name), zap.Error(err))
			report[name] = map[string]interface{}{"error": err.Error()}
			continue
		}
		report[name] = values
	}
	return report
}

func (h *StudioHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}
