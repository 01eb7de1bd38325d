// Package orchestrator drives a batch of images through one preset.
//
// The orchestrator is a small state machine:
//
//	idle ──Begin──▶ running ──▶ completed
//	                   │
//	                   └──────▶ failed
//
// completed and failed accept a new Begin; Reset and SetImages return to
// idle from any state. Items are edited one at a time, in upload order, and
// the first failure ends the run. Results already recorded stay visible.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/editor"
	"github.com/phambaophuc/product-studio/internal/services/preset"
	"github.com/phambaophuc/product-studio/internal/services/tier"
	"go.uber.org/zap"
)

type Orchestrator struct {
	editor  editor.Editor
	catalog *preset.Catalog
	policy  tier.Policy
	logger  *zap.Logger
	now     func() time.Time

	// emitMu is held across a state change and the events it produces so
	// observers see transitions in the order they were applied. Acquired
	// before mu.
	emitMu     sync.Mutex
	mu         sync.Mutex
	images     []models.UploadedImage
	results    *models.ProcessingResult
	state      models.RunState
	generation uint64

	observersMu    sync.RWMutex
	observers      map[int]Observer
	nextObserverID int
}

func New(ed editor.Editor, catalog *preset.Catalog, policy tier.Policy, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		editor:    ed,
		catalog:   catalog,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
		results:   models.NewProcessingResult(),
		state:     models.RunState{Phase: models.PhaseIdle},
		observers: make(map[int]Observer),
	}
}

// Policy returns the tier policy the orchestrator enforces.
func (o *Orchestrator) Policy() tier.Policy {
	return o.policy
}

// SetImages replaces the image set wholesale and clears previous results.
func (o *Orchestrator) SetImages(images []models.UploadedImage) error {
	o.mu.Lock()
	if o.state.Running() {
		o.mu.Unlock()
		return ErrRunInProgress
	}
	o.images = append([]models.UploadedImage(nil), images...)
	o.results.Reset()
	o.state = models.RunState{Phase: models.PhaseIdle}
	o.mu.Unlock()

	o.logger.Info("Images replaced", zap.Int("count", len(images)))
	return nil
}

// Reset discards images, results and any run in flight. The in-flight
// remote call is not aborted; its result is ignored when it returns.
func (o *Orchestrator) Reset() {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	runID := o.state.RunID
	wasRunning := o.state.Running()
	o.generation++
	o.images = nil
	o.results.Reset()
	o.state = models.RunState{Phase: models.PhaseIdle}
	o.mu.Unlock()

	if wasRunning {
		o.logger.Info("Run discarded by reset", zap.String("run_id", runID))
	}
	o.emit(models.Event{Type: models.EventReset, RunID: runID})
}

func (o *Orchestrator) Images() []models.UploadedImage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.UploadedImage(nil), o.images...)
}

func (o *Orchestrator) State() models.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Results returns the recorded results in processing order.
func (o *Orchestrator) Results() []models.ResultEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results.Entries()
}

func (o *Orchestrator) Result(filename string) (models.EditedImage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results.Get(filename)
}

// AllProcessed reports whether every current image has a result.
func (o *Orchestrator) AllProcessed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.images) > 0 && o.results.Len() == len(o.images)
}

// Run starts a run with presetID and executes it to a terminal state.
func (o *Orchestrator) Run(ctx context.Context, presetID string) error {
	run, err := o.Begin(presetID)
	if err != nil {
		return err
	}
	return run.Execute(ctx)
}

// Begin checks the preconditions of a run and moves to running. Failed
// preconditions leave the state untouched. A successful Begin must be
// followed by Execute.
func (o *Orchestrator) Begin(presetID string) (*Run, error) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()

	if o.state.Running() {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	if len(o.images) == 0 {
		o.mu.Unlock()
		return nil, ErrNothingToProcess
	}

	if decision := o.policy.CheckBatch(len(o.images)); !decision.Allowed {
		o.mu.Unlock()
		o.logger.Info("Batch blocked by tier limit",
			zap.Int("current", decision.Current),
			zap.Int("limit", decision.Limit))
		o.emit(models.Event{
			Type:    models.EventUpgradeRequired,
			Preset:  presetID,
			Error:   decision.Reason,
			Current: decision.Current,
			Limit:   decision.Limit,
		})
		return nil, &BlockedError{Decision: decision}
	}

	p, err := o.catalog.Get(presetID)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}

	run := &Run{
		o:  o,
		id: uuid.NewString(),
		request: models.BatchRequest{
			Images: append([]models.UploadedImage(nil), o.images...),
			Preset: p,
		},
		generation: o.generation,
	}

	o.results.Reset()
	o.state = models.RunState{
		Phase:  models.PhaseRunning,
		RunID:  run.id,
		Preset: p.ID,
		Total:  len(run.request.Images),
	}
	o.mu.Unlock()

	o.logger.Info("Run started",
		zap.String("run_id", run.id),
		zap.String("preset", p.ID),
		zap.Int("total", len(run.request.Images)))
	o.emit(models.Event{Type: models.EventRunStarted, RunID: run.id, Preset: p.ID, Total: len(run.request.Images)})

	return run, nil
}

// Run is one execution of the per-item loop over a fixed batch.
type Run struct {
	o          *Orchestrator
	id         string
	request    models.BatchRequest
	generation uint64

	executed bool
}

func (r *Run) ID() string {
	return r.id
}

func (r *Run) Preset() models.Preset {
	return r.request.Preset
}

// Execute edits every image in order and returns nil once the run has
// completed. A failed item yields a *RunError; a reset during the run
// yields ErrRunDiscarded.
func (r *Run) Execute(ctx context.Context) error {
	o := r.o

	o.mu.Lock()
	if r.executed {
		o.mu.Unlock()
		return ErrAlreadyExecuted
	}
	r.executed = true
	o.mu.Unlock()

	total := len(r.request.Images)
	for i, img := range r.request.Images {
		if !r.startItem(i+1, total, img.Name) {
			return ErrRunDiscarded
		}

		edited, err := r.editItem(ctx, img)
		if err != nil {
			return r.fail(img.Name, err)
		}

		if !r.record(i+1, total, img.Name, *edited) {
			return ErrRunDiscarded
		}
	}

	return r.complete()
}

func (r *Run) editItem(ctx context.Context, img models.UploadedImage) (*models.EditedImage, error) {
	instruction := r.request.Preset.Instruction(img)

	data, err := img.Payload()
	if err != nil {
		return nil, err
	}

	return r.o.editor.Edit(ctx, models.EditRequest{
		Data:        data,
		MIMEType:    img.MIMEType,
		Instruction: instruction,
	})
}

// current reports whether the run still owns the orchestrator state.
// Callers hold o.mu.
func (r *Run) current() bool {
	return r.o.generation == r.generation && r.o.state.RunID == r.id
}

func (r *Run) startItem(index, total int, filename string) bool {
	o := r.o
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if !r.current() {
		o.mu.Unlock()
		return false
	}
	o.state.Current = index
	o.state.Filename = filename
	o.mu.Unlock()

	o.logger.Debug("Processing image",
		zap.String("run_id", r.id),
		zap.Int("index", index),
		zap.Int("total", total),
		zap.String("file", filename))
	o.emit(models.Event{Type: models.EventItemStarted, RunID: r.id, Index: index, Total: total, Filename: filename})
	return true
}

func (r *Run) record(index, total int, filename string, edited models.EditedImage) bool {
	o := r.o
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if !r.current() {
		o.mu.Unlock()
		o.logger.Info("Ignoring result of discarded run", zap.String("run_id", r.id), zap.String("file", filename))
		return false
	}
	o.results.Set(filename, edited)
	o.mu.Unlock()

	o.emit(models.Event{Type: models.EventItemSucceeded, RunID: r.id, Index: index, Total: total, Filename: filename})
	return true
}

func (r *Run) fail(filename string, cause error) error {
	runErr := &RunError{Filename: filename, Err: cause}

	o := r.o
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if !r.current() {
		o.mu.Unlock()
		return ErrRunDiscarded
	}
	o.state = models.RunState{
		Phase:    models.PhaseFailed,
		RunID:    r.id,
		Preset:   r.request.Preset.ID,
		Total:    len(r.request.Images),
		Filename: filename,
		Error:    runErr.Error(),
	}
	processed := o.results.Len()
	o.mu.Unlock()

	o.logger.Error("Run failed",
		zap.String("run_id", r.id),
		zap.String("file", filename),
		zap.Int("processed", processed),
		zap.Int("total", len(r.request.Images)),
		zap.Error(cause))
	o.emit(models.Event{
		Type:     models.EventRunFailed,
		RunID:    r.id,
		Total:    len(r.request.Images),
		Filename: filename,
		Error:    runErr.Error(),
	})
	return runErr
}

func (r *Run) complete() error {
	o := r.o
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if !r.current() {
		o.mu.Unlock()
		return ErrRunDiscarded
	}
	o.state = models.RunState{
		Phase:  models.PhaseCompleted,
		RunID:  r.id,
		Preset: r.request.Preset.ID,
		Total:  len(r.request.Images),
	}
	o.mu.Unlock()

	o.logger.Info("Run completed", zap.String("run_id", r.id), zap.Int("total", len(r.request.Images)))
	o.emit(models.Event{Type: models.EventRunCompleted, RunID: r.id, Preset: r.request.Preset.ID, Total: len(r.request.Images)})
	return nil
}
