package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/product-studio/internal/config"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/bundler"
	"github.com/phambaophuc/product-studio/internal/services/intake"
	"github.com/phambaophuc/product-studio/internal/services/orchestrator"
	"github.com/phambaophuc/product-studio/internal/services/preset"
	"github.com/phambaophuc/product-studio/internal/services/session"
	"github.com/phambaophuc/product-studio/internal/services/tier"
	"github.com/phambaophuc/product-studio/pkg/utils"
	"go.uber.org/zap"
)

const (
	imagesParamKey  = "images"
	eventBufferSize = 32
)

// HealthFunc reports the status of one backing service.
type HealthFunc func(ctx context.Context) string

// StatsFunc reports usage counters of one backing service.
type StatsFunc func(ctx context.Context) (map[string]interface{}, error)

type StudioHandler struct {
	sessions *session.Store
	intake   *intake.Service
	catalog  *preset.Catalog
	policy   tier.Policy
	bundler  *bundler.Bundler
	logger   *zap.Logger
	config   *config.Config

	healthMu sync.RWMutex
	health   map[string]HealthFunc
	stats    map[string]StatsFunc

	// runCtx bounds every background run; cancelling it aborts runs at
	// their next remote call.
	runCtx context.Context
	runs   sync.WaitGroup
}

func NewStudioHandler(
	runCtx context.Context,
	sessions *session.Store,
	intakeService *intake.Service,
	catalog *preset.Catalog,
	policy tier.Policy,
	archiver *bundler.Bundler,
	logger *zap.Logger,
	config *config.Config,
) *StudioHandler {
	return &StudioHandler{
		sessions: sessions,
		intake:   intakeService,
		catalog:  catalog,
		policy:   policy,
		bundler:  archiver,
		logger:   logger,
		config:   config,
		health:   make(map[string]HealthFunc),
		stats:    make(map[string]StatsFunc),
		runCtx:   runCtx,
	}
}

// RegisterHealthCheck adds a service to the health report.
func (h *StudioHandler) RegisterHealthCheck(name string, check HealthFunc) {
	h.healthMu.Lock()
	defer h.healthMu.Unlock()
	h.health[name] = check
}

// RegisterStats adds a service to the stats report.
func (h *StudioHandler) RegisterStats(name string, stats StatsFunc) {
	h.healthMu.Lock()
	defer h.healthMu.Unlock()
	h.stats[name] = stats
}

// Wait blocks until every background run has returned.
func (h *StudioHandler) Wait() {
	h.runs.Wait()
}

// === MAIN API ENDPOINTS ===

func (h *StudioHandler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.catalog.List(),
	})
}

func (h *StudioHandler) GetPlan(c *gin.Context) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.policy.Limits(),
	})
}

func (h *StudioHandler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Data:    h.buildSessionView(sess),
	})
}

func (h *StudioHandler) GetSession(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.buildSessionView(sess),
	})
}

func (h *StudioHandler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.respondError(c, http.StatusNotFound, "Session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImages runs intake over the multipart "images" field and replaces
// the session's image set with the accepted files.
func (h *StudioHandler) UploadImages(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	headers, err := h.parseMultipartFiles(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	if sess.Orchestrator.State().Running() {
		h.respondError(c, http.StatusConflict, "Please wait for the current batch to finish.")
		return
	}

	if decision := h.policy.CheckUpload(len(headers)); !decision.Allowed {
		h.respondError(c, http.StatusBadRequest, decision.Reason)
		return
	}

	result, err := h.intake.Process(c.Request.Context(), intake.FromMultipart(headers), h.policy.UploadLimit())
	if err != nil {
		h.respondIntakeError(c, err)
		return
	}

	response := models.IntakeResponse{Images: result.Images, Rejected: result.Rejected}
	if len(result.Images) == 0 {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Success: false,
			Data:    response,
			Error:   result.Message(),
		})
		return
	}

	if err := sess.Orchestrator.SetImages(result.Images); err != nil {
		h.respondRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    response,
		Error:   result.Message(),
	})
}

// ResetImages is "Start Over": images, results and any run are discarded.
func (h *StudioHandler) ResetImages(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	sess.Orchestrator.Reset()
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.buildSessionView(sess),
	})
}

// StartRun begins a preset run and executes it in the background. Progress
// is observed through GetSession or StreamEvents.
func (h *StudioHandler) StartRun(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	var req models.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "A preset is required")
		return
	}

	run, err := sess.Orchestrator.Begin(req.Preset)
	if err != nil {
		h.respondRunError(c, err)
		return
	}

	h.runs.Add(1)
	go func() {
		defer h.runs.Done()
		h.executeRun(sess.ID, run)
	}()

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Data:    sess.Orchestrator.State(),
	})
}

// StreamEvents sends the current state followed by every run event as
// server-sent events until the client disconnects.
func (h *StudioHandler) StreamEvents(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	events, cancel := sess.Orchestrator.Subscribe(eventBufferSize)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("state", sess.Orchestrator.State())
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		}
	})
}

// DownloadResult serves one edited image by its original filename.
func (h *StudioHandler) DownloadResult(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	filename := c.Param("filename")
	img, found := sess.Orchestrator.Result(filename)
	if !found {
		h.respondError(c, http.StatusNotFound, "No processed image named "+filename)
		return
	}

	h.respondAttachment(c, utils.EditedFilename(filename, bundler.OutputFormat), img.MIMEType, img.Data)
}

func (h *StudioHandler) DownloadArchive(c *gin.Context) {
	sess, ok := h.getSession(c)
	if !ok {
		return
	}

	if sess.Orchestrator.State().Running() {
		h.respondError(c, http.StatusConflict, "Please wait for the current batch to finish.")
		return
	}

	buffer, err := h.bundler.Bundle(c.Request.Context(), sess.Orchestrator.Results())
	if err != nil {
		if errors.Is(err, bundler.ErrNothingToBundle) {
			h.respondError(c, http.StatusBadRequest, "No processed images to download.")
			return
		}
		h.logger.Error("Failed to bundle results",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Could not create ZIP file. Please try again or download images individually.")
		return
	}

	h.respondAttachment(c, bundler.ArchiveName, "application/zip", buffer.Bytes())
}

// HealthCheck
func (h *StudioHandler) HealthCheck(c *gin.Context) {
	services := h.checkServices(c.Request.Context())
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
			Sessions:  h.sessions.Len(),
		},
	})
}

func (h *StudioHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    h.collectStats(c.Request.Context()),
	})
}

func (h *StudioHandler) executeRun(sessionID string, run *orchestrator.Run) {
	err := run.Execute(h.runCtx)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrRunDiscarded):
		h.logger.Info("Run discarded",
			zap.String("session_id", sessionID),
			zap.String("run_id", run.ID()))
	default:
		h.logger.Warn("Run ended with error",
			zap.String("session_id", sessionID),
			zap.String("run_id", run.ID()),
			zap.Error(err))
	}
}
