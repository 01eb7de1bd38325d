package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/phambaophuc/product-studio/internal/config"
	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/bundler"
	"github.com/phambaophuc/product-studio/internal/services/editor"
	"github.com/phambaophuc/product-studio/internal/services/intake"
	"github.com/phambaophuc/product-studio/internal/services/orchestrator"
	"github.com/phambaophuc/product-studio/internal/services/preset"
	"github.com/phambaophuc/product-studio/internal/services/processor"
	"github.com/phambaophuc/product-studio/internal/services/storage"
	"github.com/phambaophuc/product-studio/internal/services/tier"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	editPreset string
	editOut    string
)

var editCmd = &cobra.Command{
	Use:   "edit [flags] IMAGE...",
	Short: "Apply a preset to images and write a zip archive",
	Long: `Apply one preset to every image, in order, and write the edited images
to a zip archive. Processing stops at the first failed image; images
edited before the failure are still written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editPreset, "preset", "p", preset.AutoEnhance, "preset to apply")
	editCmd.Flags().StringVarP(&editOut, "out", "o", bundler.ArchiveName, "archive to write")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	imageProcessor := processor.NewImageProcessor(cfg.Intake.ThumbnailSize)

	gemini, err := editor.NewGeminiEditor(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, imageProcessor, logger)
	if err != nil {
		return err
	}

	var imageEditor editor.Editor = editor.WithRetry(gemini, editor.RetryPolicy{
		MaxAttempts:    cfg.Editor.MaxAttempts,
		AttemptTimeout: cfg.Editor.AttemptTimeout,
		InitialBackoff: cfg.Editor.InitialBackoff,
		MaxBackoff:     cfg.Editor.MaxBackoff,
	}, logger)

	if cfg.Redis.Addr != "" {
		cache, err := storage.NewStorageService(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Edit cache unavailable", zap.Error(err))
		} else {
			defer cache.Close()
			imageEditor = editor.WithCache(imageEditor, cache, logger)
		}
	}

	files := make([]intake.File, 0, len(args))
	for _, path := range args {
		f, err := intake.OpenLocal(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	return runBatch(ctx, batchJob{
		config:    cfg,
		processor: imageProcessor,
		editor:    imageEditor,
		catalog:   catalog,
		files:     files,
		presetID:  editPreset,
		out:       editOut,
		progress:  cmd.ErrOrStderr(),
		logger:    logger,
	})
}

type batchJob struct {
	config    *config.Config
	processor *processor.ImageProcessor
	editor    editor.Editor
	catalog   *preset.Catalog
	files     []intake.File
	presetID  string
	out       string
	progress  io.Writer
	logger    *zap.Logger
}

// runBatch takes files through intake, one orchestrator run and the
// bundler. Partial results of a failed run are still archived.
func runBatch(ctx context.Context, job batchJob) error {
	policy, err := tier.NewPolicy(job.config.Tier.UploadLimit, job.config.Tier.BatchLimit)
	if err != nil {
		return err
	}

	if decision := policy.CheckUpload(len(job.files)); !decision.Allowed {
		return fmt.Errorf("%s", decision.Reason)
	}

	intakeService := intake.NewService(job.processor, intake.Options{
		MaxFileSize:  job.config.Intake.MaxFileSize,
		AllowedTypes: job.config.Intake.AllowedTypes,
	}, job.logger)

	result, err := intakeService.Process(ctx, job.files, policy.UploadLimit())
	if err != nil {
		return err
	}
	for _, r := range result.Rejected {
		fmt.Fprintln(job.progress, r.Message)
	}

	o := orchestrator.New(job.editor, job.catalog, policy, job.logger)
	defer o.Observe(progressObserver(job.progress))()

	if err := o.SetImages(result.Images); err != nil {
		return err
	}

	runErr := o.Run(ctx, job.presetID)
	var blocked *orchestrator.BlockedError
	switch {
	case errors.As(runErr, &blocked):
		return fmt.Errorf("%s", blocked.Decision.Reason)
	case errors.Is(runErr, orchestrator.ErrNothingToProcess):
		return fmt.Errorf("no images to process")
	}

	if results := o.Results(); len(results) > 0 {
		if err := writeArchive(ctx, job.out, results, job.logger); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(job.progress, "Wrote %d edited image(s) to %s\n", len(results), job.out)
	}

	return runErr
}

func progressObserver(w io.Writer) orchestrator.Observer {
	return orchestrator.ObserverFunc(func(event models.Event) {
		switch event.Type {
		case models.EventItemStarted:
			fmt.Fprintf(w, "Processing image %d of %d... (%s)\n", event.Index, event.Total, event.Filename)
		case models.EventRunCompleted:
			fmt.Fprintf(w, "All %d images have been processed.\n", event.Total)
		case models.EventRunFailed:
			fmt.Fprintln(w, event.Error)
		}
	})
}

func writeArchive(ctx context.Context, path string, results []models.ResultEntry, logger *zap.Logger) error {
	buffer, err := bundler.NewBundler(bundler.DefaultWorker, logger).Bundle(ctx, results)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}
