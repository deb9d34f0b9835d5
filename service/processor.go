package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"videogen-server/config"
	"videogen-server/models"

	"github.com/hibiken/asynq"
)

// GenerationStore is the persistence the processor needs.
// *models.GenerationRepo implements it.
type GenerationStore interface {
	Get(ctx context.Context, id string) (*models.Generation, error)
	MarkStarted(ctx context.Context, id string, at time.Time) error
	SaveSnapshot(ctx context.Context, id string, snap models.Snapshot) error
	SaveOutcome(ctx context.Context, id string, out models.Outcome, at time.Time) error
	SetArchivedURL(ctx context.Context, id, url string) error
}

// Archiver copies a finished video into storage we control and returns
// its URL.
type Archiver interface {
	ArchiveVideo(ctx context.Context, sourceURL, objectName string) (string, error)
}

// Processor consumes generation tasks and runs each through the
// orchestrator, persisting every snapshot as it arrives.
type Processor struct {
	Store        GenerationStore
	Orchestrator *Orchestrator
	// Archiver is optional.
	Archiver Archiver
}

func NewProcessor(store GenerationStore, orch *Orchestrator, archiver Archiver) *Processor {
	return &Processor{
		Store:        store,
		Orchestrator: orch,
		Archiver:     archiver,
	}
}

// StartProcessor starts the asynq consumer in the background.
func (p *Processor) StartProcessor(concurrency int) *asynq.Server {
	srv := asynq.NewServer(
		redisOpt(config.AppConfig),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(p.HandleTaskError),
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRunGeneration, p.HandleGenerateTask)

	log.Printf("[Processor] starting with concurrency %d", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run processor: %v", err)
		}
	}()
	return srv
}

// HandleGenerateTask runs one generation. Business failures are recorded on
// the generation and return nil so asynq does not retry them.
func (p *Processor) HandleGenerateTask(ctx context.Context, t *asynq.Task) error {
	var payload GenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	gen, err := p.Store.Get(ctx, payload.GenerationID)
	if err != nil {
		if errors.Is(err, models.ErrGenerationNotFound) {
			return fmt.Errorf("generation %s: %v: %w", payload.GenerationID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("load generation %s: %w", payload.GenerationID, err)
	}
	if models.IsTerminalState(gen.State) {
		log.Printf("[Processor] generation %s already %s, skipping", gen.ID, gen.State)
		return nil
	}

	log.Printf("[Processor] running generation %s", gen.ID)
	if err := p.Store.MarkStarted(ctx, gen.ID, time.Now()); err != nil {
		log.Printf("[Processor] mark started %s failed: %v", gen.ID, err)
	}

	out := p.Orchestrator.Run(ctx, gen.Request, func(snap models.Snapshot) {
		if err := p.Store.SaveSnapshot(ctx, gen.ID, snap); err != nil {
			log.Printf("[Processor] save snapshot %s failed: %v", gen.ID, err)
		}
	})

	// ctx may already be done when the run was cancelled; the outcome still
	// has to be written.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := p.Store.SaveOutcome(saveCtx, gen.ID, out, time.Now()); err != nil {
		log.Printf("[Processor] save outcome %s failed: %v", gen.ID, err)
	}

	if out.Succeeded() && out.VideoURL != "" && p.Archiver != nil {
		p.archive(saveCtx, gen.ID, out.VideoURL)
	}

	if out.State == models.StateError {
		log.Printf("[Processor] generation %s failed (%s): %s", gen.ID, out.Failure, out.Error)
	} else {
		log.Printf("[Processor] generation %s finished: %s", gen.ID, out.State)
	}
	return nil
}

// HandleTaskError runs when a task returns an error or panics. Tasks are
// never retried, so the generation is marked failed here instead of being
// left in an active state.
func (p *Processor) HandleTaskError(ctx context.Context, t *asynq.Task, taskErr error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry {
		return
	}

	var payload GenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.GenerationID == "" {
		log.Printf("[Processor] task %s failed with unreadable payload: %v", t.Type(), taskErr)
		return
	}
	id := payload.GenerationID

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	gen, err := p.Store.Get(saveCtx, id)
	switch {
	case errors.Is(err, models.ErrGenerationNotFound):
		return
	case err == nil && models.IsTerminalState(gen.State):
		return
	}

	out := models.Outcome{
		State:   models.StateError,
		Failure: models.FailureInternal,
		Error:   msgInternalFailed,
	}
	if gen != nil {
		out.ProjectID = gen.ProjectID
	}
	if err := p.Store.SaveOutcome(saveCtx, id, out, time.Now()); err != nil {
		log.Printf("[Processor] record failure of %s failed: %v (task error: %v)", id, err, taskErr)
		return
	}
	log.Printf("[Processor] generation %s marked failed: %v", id, taskErr)
}

func (p *Processor) archive(ctx context.Context, generationID, videoURL string) {
	objectName := fmt.Sprintf("generations/%s/video.mp4", generationID)
	archivedURL, err := p.Archiver.ArchiveVideo(ctx, videoURL, objectName)
	if err != nil {
		log.Printf("[Processor] archive video of %s failed: %v", generationID, err)
		return
	}
	if err := p.Store.SetArchivedURL(ctx, generationID, archivedURL); err != nil {
		log.Printf("[Processor] save archived url of %s failed: %v", generationID, err)
	}
}
