// Package convert orchestrates the conversion pipeline: parse a share
// link through the configured parser API, then transfer the media to
// the configured WebDAV server, tracking task state throughout.
package convert

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"media-saver/pkg/models"
)

// DefaultTaskDelay paces sequential batch tasks so parser APIs do not
// rate-limit us
const DefaultTaskDelay = time.Second

// BatchProgressFunc receives overall batch progress (0-100) and the
// task currently being processed
type BatchProgressFunc func(progress float64, current *models.ConversionTask)

// Orchestrator drives conversion tasks through their state machine
type Orchestrator struct {
	parser   models.ParserClient
	uploader models.Uploader
	store    models.HistoryStore
	limiter  *rate.Limiter
	folder   string
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an orchestrator. The history store is optional; pass nil
// to skip persistence.
func New(parserClient models.ParserClient, uploader models.Uploader, store models.HistoryStore) *Orchestrator {
	return &Orchestrator{
		parser:   parserClient,
		uploader: uploader,
		store:    store,
		limiter:  rate.NewLimiter(rate.Every(DefaultTaskDelay), 1),
		logger:   zerolog.New(os.Stdout).With().Timestamp().Str("component", "convert").Logger(),
		now:      time.Now,
	}
}

// SetTaskDelay overrides the inter-task pacing interval
func (o *Orchestrator) SetTaskDelay(delay time.Duration) {
	if delay > 0 {
		o.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
}

// SetFolderPath sets the target folder on the WebDAV server for all
// uploads run through this orchestrator
func (o *Orchestrator) SetFolderPath(folder string) {
	o.folder = folder
}

// SetLogger sets the logger for the orchestrator
func (o *Orchestrator) SetLogger(logger zerolog.Logger) {
	o.logger = logger
}

// NewTask creates a pending conversion task for a share link
func (o *Orchestrator) NewTask(sourceURL string) *models.ConversionTask {
	return &models.ConversionTask{
		ID:        "task_" + uuid.NewString(),
		SourceURL: sourceURL,
		Status:    models.StatusPending,
		CreatedAt: o.now(),
	}
}

// NewBatch creates a pending batch over a list of share links
func (o *Orchestrator) NewBatch(name string, sourceURLs []string) *models.BatchTask {
	batch := &models.BatchTask{
		ID:         "batch_" + uuid.NewString(),
		Name:       name,
		Status:     models.BatchStatusPending,
		TotalTasks: len(sourceURLs),
		CreatedAt:  o.now(),
	}
	for _, u := range sourceURLs {
		task := o.NewTask(u)
		task.BatchID = batch.ID
		batch.Tasks = append(batch.Tasks, task)
	}
	return batch
}

// Preview parses a share link without uploading, returning the
// normalized record and the raw payload for diagnostics
func (o *Orchestrator) Preview(ctx context.Context, sourceURL string, parserCfg models.ParserConfig) (*models.ParsedMediaInfo, map[string]any, error) {
	extracted := ExtractShareURL(sourceURL)
	if !IsValidURL(extracted) {
		return nil, nil, models.NewInputError("invalid media link, it must start with http:// or https://")
	}

	raw, err := o.parser.ParseRaw(ctx, extracted, parserCfg)
	if err != nil {
		return nil, nil, err
	}

	info, err := o.parser.Parse(ctx, extracted, parserCfg)
	if err != nil {
		return nil, raw, err
	}
	return info, raw, nil
}

// ConvertSingle runs one task through PENDING -> PARSING -> UPLOADING
// -> SUCCESS/FAILED. Errors never propagate: the task always comes back
// in a terminal state.
func (o *Orchestrator) ConvertSingle(ctx context.Context, task *models.ConversionTask, parserCfg models.ParserConfig, webdavCfg models.WebDAVConfig, onProgress models.ProgressFunc) *models.ConversionTask {
	report := func(progress float64, status models.TaskStatus) {
		task.Progress = progress
		if onProgress != nil {
			onProgress(progress, status)
		}
	}

	task.Status = models.StatusParsing
	report(20, models.StatusParsing)

	o.logger.Info().
		Str("task", task.ID).
		Str("url", task.SourceURL).
		Str("parser", parserCfg.Name).
		Msg("Starting conversion")

	extracted := ExtractShareURL(task.SourceURL)
	if !IsValidURL(extracted) {
		return o.failTask(task, models.NewInputError("invalid media link, it must start with http:// or https://"), onProgress)
	}

	info, err := o.parser.Parse(ctx, extracted, parserCfg)
	if err != nil {
		return o.failTask(task, friendlyParseError(err), onProgress)
	}

	task.ParsedInfo = info
	task.Title = info.Title
	report(50, models.StatusParsing)

	task.Status = models.StatusUploading
	report(60, models.StatusUploading)

	result, err := o.uploader.Upload(ctx, info, webdavCfg, o.folder)
	if err != nil {
		return o.failTask(task, err, onProgress)
	}

	return o.completeTask(task, result, onProgress)
}

// ParseOnly advances a task to PARSED without uploading, so a caller can
// show the media record and wait for confirmation before the transfer
func (o *Orchestrator) ParseOnly(ctx context.Context, task *models.ConversionTask, parserCfg models.ParserConfig) *models.ConversionTask {
	task.Status = models.StatusParsing
	task.Progress = 20

	extracted := ExtractShareURL(task.SourceURL)
	if !IsValidURL(extracted) {
		return o.failTask(task, models.NewInputError("invalid media link, it must start with http:// or https://"), nil)
	}

	info, err := o.parser.Parse(ctx, extracted, parserCfg)
	if err != nil {
		return o.failTask(task, friendlyParseError(err), nil)
	}

	task.ParsedInfo = info
	task.Title = info.Title
	task.Status = models.StatusParsed
	task.Progress = 50
	return task
}

// UploadParsed resumes a PARSED task through the upload phase. Calling it
// on a task without parsed media info fails the task.
func (o *Orchestrator) UploadParsed(ctx context.Context, task *models.ConversionTask, webdavCfg models.WebDAVConfig, onProgress models.ProgressFunc) *models.ConversionTask {
	if task.Status != models.StatusParsed || task.ParsedInfo == nil {
		return o.failTask(task, models.NewInputError("task has no parsed media info, parse the link first"), onProgress)
	}

	task.Status = models.StatusUploading
	task.Progress = 60
	if onProgress != nil {
		onProgress(60, models.StatusUploading)
	}

	result, err := o.uploader.Upload(ctx, task.ParsedInfo, webdavCfg, o.folder)
	if err != nil {
		return o.failTask(task, err, onProgress)
	}

	return o.completeTask(task, result, onProgress)
}

func (o *Orchestrator) completeTask(task *models.ConversionTask, result *models.UploadResult, onProgress models.ProgressFunc) *models.ConversionTask {
	task.Status = models.StatusSuccess
	task.Upload = result
	completedAt := o.now()
	task.CompletedAt = &completedAt
	task.Progress = 100
	if onProgress != nil {
		onProgress(100, models.StatusSuccess)
	}

	o.logger.Info().
		Str("task", task.ID).
		Str("path", result.FilePath).
		Msg("Conversion succeeded")

	o.saveTask(task)
	return task
}

func (o *Orchestrator) failTask(task *models.ConversionTask, err error, onProgress models.ProgressFunc) *models.ConversionTask {
	task.Status = models.StatusFailed
	task.Error = err.Error()
	task.Upload = &models.UploadResult{Success: false, Error: task.Error}
	completedAt := o.now()
	task.CompletedAt = &completedAt
	task.Progress = 0
	if onProgress != nil {
		onProgress(0, models.StatusFailed)
	}

	o.logger.Error().
		Str("task", task.ID).
		Err(err).
		Msg("Conversion failed")

	o.saveTask(task)
	return task
}

// friendlyParseError rephrases the bare empty-URL failure which
// usually means the parser API could not extract anything
func friendlyParseError(err error) error {
	var ie *models.InputError
	if errors.As(err, &ie) && strings.Contains(ie.Msg, "URL is empty") {
		return models.NewInputError("URL is empty - the parser API could not extract a media URL, try another parser or check the link")
	}
	return err
}

// ConvertBatch runs tasks strictly sequentially with pacing between
// them. One failed task never stops the batch. The terminal status
// distinguishes full success, partial success and total failure.
func (o *Orchestrator) ConvertBatch(ctx context.Context, batch *models.BatchTask, parserCfg models.ParserConfig, webdavCfg models.WebDAVConfig, onProgress BatchProgressFunc) *models.BatchTask {
	batch.Status = models.BatchStatusRunning
	total := len(batch.Tasks)
	completed := 0

	o.logger.Info().
		Str("batch", batch.ID).
		Int("tasks", total).
		Msg("Starting batch conversion")

	for i, task := range batch.Tasks {
		if ctx.Err() != nil {
			o.failTask(task, ctx.Err(), nil)
			continue
		}

		current := task
		o.ConvertSingle(ctx, task, parserCfg, webdavCfg, func(progress float64, _ models.TaskStatus) {
			if onProgress != nil && total > 0 {
				overall := (float64(completed) + progress/100) / float64(total) * 100
				onProgress(overall, current)
			}
		})

		if task.Status == models.StatusSuccess {
			completed++
		}
		batch.CompletedTasks = completed

		if onProgress != nil && total > 0 {
			onProgress(float64(i+1)/float64(total)*100, task)
		}

		if i < total-1 {
			if err := o.limiter.Wait(ctx); err != nil {
				continue
			}
		}
	}

	completedAt := o.now()
	batch.CompletedAt = &completedAt

	switch {
	case completed == total:
		// A batch with no tasks ends vacuously successful
		batch.Status = models.BatchStatusSuccess
	case completed == 0:
		batch.Status = models.BatchStatusFailed
	default:
		batch.Status = models.BatchStatusPartial
	}

	o.logger.Info().
		Str("batch", batch.ID).
		Int("completed", completed).
		Int("total", total).
		Str("status", string(batch.Status)).
		Msg("Batch conversion finished")

	o.saveBatch(batch)
	return batch
}

func (o *Orchestrator) saveTask(task *models.ConversionTask) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveTask(task); err != nil {
		o.logger.Warn().Err(err).Str("task", task.ID).Msg("Failed to persist task")
	}
}

func (o *Orchestrator) saveBatch(batch *models.BatchTask) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveBatch(batch); err != nil {
		o.logger.Warn().Err(err).Str("batch", batch.ID).Msg("Failed to persist batch")
	}
}
