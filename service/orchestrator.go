package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"time"

	"videogen-server/models"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 360
)

// Messages shown to the user on failure.
const (
	msgCreateFailed   = "failed to create project"
	msgStartFailed    = "failed to start generation"
	msgRemoteFailed   = "generation failed"
	msgCancelled      = "generation cancelled"
	msgInternalFailed = "generation could not be completed"
)

// ObserverFunc receives every snapshot of a run, in order. Each snapshot
// replaces the previous one.
type ObserverFunc func(models.Snapshot)

// Orchestrator drives one generation from submission to a terminal
// outcome: create project, start pipeline, poll status, fetch result.
type Orchestrator struct {
	API          PipelineAPI
	PollInterval time.Duration
	MaxAttempts  int
}

func NewOrchestrator(api PipelineAPI, pollInterval time.Duration, maxAttempts int) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Orchestrator{
		API:          api,
		PollInterval: pollInterval,
		MaxAttempts:  maxAttempts,
	}
}

// Run executes a single generation. A blank prompt is a no-op: no network
// call, no snapshot, and an idle outcome. observe may be nil.
func (o *Orchestrator) Run(ctx context.Context, req models.GenerationRequest, observe ObserverFunc) models.Outcome {
	if req.IsBlank() {
		return models.Outcome{State: models.StateIdle}
	}
	if observe == nil {
		observe = func(models.Snapshot) {}
	}
	req = req.Normalize()

	observe(models.Snapshot{State: models.StateCreating, Progress: models.ProgressCreating})

	project, err := o.API.CreateProject(ctx, req)
	if err == nil && (project == nil || project.ID == "") {
		err = ErrEmptyProjectID
	}
	if err != nil {
		log.Printf("[Orchestrator] create project failed: %v", err)
		return failure("", models.FailureCreate, userMessage(msgCreateFailed, err))
	}
	projectID := project.ID
	log.Printf("[Orchestrator] project %s created", projectID)

	if err := o.API.StartPipeline(ctx, projectID, req.AutoPublish); err != nil {
		log.Printf("[Orchestrator] start pipeline for %s failed: %v", projectID, err)
		return failure(projectID, models.FailureStart, userMessage(msgStartFailed, err))
	}
	observe(models.Snapshot{ProjectID: projectID, State: models.StateCreating, Progress: models.ProgressStarted})

	if out, done := o.poll(ctx, projectID, req.Language, observe); done {
		return out
	}
	return o.finalize(ctx, projectID, observe)
}

// poll returns done=true with an error outcome when the run ends without
// the pipeline reporting completion.
func (o *Orchestrator) poll(ctx context.Context, projectID, lang string, observe ObserverFunc) (models.Outcome, bool) {
	lastRank := 0
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		if err := o.wait(ctx); err != nil {
			return failure(projectID, models.FailureCancelled, msgCancelled), true
		}

		status, err := o.API.GetStatus(ctx, projectID)
		if err != nil {
			if ctx.Err() != nil {
				return failure(projectID, models.FailureCancelled, msgCancelled), true
			}
			log.Printf("[Orchestrator] poll %d/%d for %s failed, retrying: %v", attempt, o.MaxAttempts, projectID, err)
			continue
		}

		switch models.ClassifyStatus(status.Status) {
		case models.StatusSucceeded:
			log.Printf("[Orchestrator] project %s completed after %d polls", projectID, attempt)
			return models.Outcome{}, false
		case models.StatusFailed:
			log.Printf("[Orchestrator] project %s reported %q: %s", projectID, status.Status, status.Error)
			return failure(projectID, models.FailureRemote, msgRemoteFailed), true
		}

		if rank := models.StatusRank(status.Status); rank != 0 {
			if rank < lastRank {
				log.Printf("[Orchestrator] project %s status went back to %q, ignoring poll %d", projectID, status.Status, attempt)
				continue
			}
			lastRank = rank
		}

		observe(models.Snapshot{
			ProjectID:    projectID,
			State:        models.StateGenerating,
			Progress:     models.DisplayProgress(status.Progress.Overall),
			Phase:        status.CurrentPhase,
			PhaseLabel:   models.PhaseLabel(lang, status.CurrentPhase),
			Phases:       phaseBreakdown(status.Progress.Phases),
			RemoteStatus: status.Status,
		})
	}

	msg := timeoutMessage(o.PollInterval * time.Duration(o.MaxAttempts))
	log.Printf("[Orchestrator] project %s: %s (%d polls)", projectID, msg, o.MaxAttempts)
	return failure(projectID, models.FailureTimeout, msg), true
}

// finalize fetches the project once. Completion without a video URL is
// still a success.
func (o *Orchestrator) finalize(ctx context.Context, projectID string, observe ObserverFunc) models.Outcome {
	out := models.Outcome{State: models.StateCompleted, ProjectID: projectID}

	project, err := o.API.GetProject(ctx, projectID)
	switch {
	case err != nil:
		log.Printf("[Orchestrator] fetch completed project %s failed: %v", projectID, err)
	case project.VideoURL == "":
		log.Printf("[Orchestrator] project %s completed without a video url", projectID)
		out.PublishedURLs = project.PublishedURLs
	default:
		out.VideoURL = project.VideoURL
		out.PublishedURLs = project.PublishedURLs
	}

	observe(models.Snapshot{ProjectID: projectID, State: models.StateCompleted, Progress: models.ProgressDone})
	return out
}

// failure builds an error outcome. No snapshot is emitted for it; the
// outcome itself is the terminal state.
func failure(projectID, kind, msg string) models.Outcome {
	return models.Outcome{
		State:     models.StateError,
		ProjectID: projectID,
		Failure:   kind,
		Error:     msg,
	}
}

func (o *Orchestrator) wait(ctx context.Context) error {
	timer := time.NewTimer(o.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func phaseBreakdown(phases map[string]float64) models.PhaseBreakdown {
	if len(phases) == 0 {
		return nil
	}
	out := make(models.PhaseBreakdown, len(phases))
	for name, pct := range phases {
		out[name] = int(math.Floor(pct))
	}
	return out
}

// userMessage keeps network and decode details out of the UI.
func userMessage(msg string, err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return msg + ": the pipeline did not respond in time"
	}
	if errors.Is(err, ErrEmptyProjectID) {
		return msg + ": the pipeline returned no project id"
	}
	return msg
}

func timeoutMessage(ceiling time.Duration) string {
	if ceiling >= time.Minute {
		return fmt.Sprintf("generation exceeds %d minutes", int(ceiling/time.Minute))
	}
	return fmt.Sprintf("generation exceeds %s", ceiling)
}
