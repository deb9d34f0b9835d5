package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"videogen-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerationStore is the persistence the handlers need.
// *models.GenerationRepo implements it.
type GenerationStore interface {
	Create(ctx context.Context, g *models.Generation) error
	Get(ctx context.Context, id string) (*models.Generation, error)
	FindActive(ctx context.Context, sessionID string) (*models.Generation, error)
	SaveOutcome(ctx context.Context, id string, out models.Outcome, at time.Time) error
}

// Enqueuer schedules a stored generation for execution.
type Enqueuer func(generationID string) error

type GenerationHandler struct {
	store   GenerationStore
	enqueue Enqueuer
	// submitMu makes the active-session check and the insert one step.
	submitMu sync.Mutex
	// FeedInterval is how often the websocket feed re-reads the store.
	FeedInterval time.Duration
}

func NewGenerationHandler(store GenerationStore, enqueue Enqueuer) *GenerationHandler {
	return &GenerationHandler{
		store:        store,
		enqueue:      enqueue,
		FeedInterval: time.Second,
	}
}

type createGenerationRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	models.GenerationRequest
}

// CreateGeneration submits a generation: POST /v1/api/generations
func (h *GenerationHandler) CreateGeneration(c *gin.Context) {
	var req createGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Nothing to do for a blank prompt; the UI stays idle.
	if req.IsBlank() {
		c.JSON(http.StatusOK, gin.H{"state": models.StateIdle})
		return
	}

	genReq := req.GenerationRequest.Normalize()
	if err := genReq.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	gen, active, err := h.admit(ctx, req.SessionID, genReq)
	switch {
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	case active != nil:
		c.JSON(http.StatusConflict, gin.H{
			"error":         "a generation is already running for this session",
			"generation_id": active.ID,
			"state":         active.State,
		})
		return
	}

	if err := h.enqueue(gen.ID); err != nil {
		log.Printf("[API] enqueue generation %s failed: %v", gen.ID, err)
		out := models.Outcome{State: models.StateError, Failure: models.FailureCreate, Error: "failed to queue generation"}
		if err := h.store.SaveOutcome(ctx, gen.ID, out, time.Now()); err != nil {
			log.Printf("[API] mark generation %s failed: %v", gen.ID, err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": out.Error, "generation_id": gen.ID})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"generation_id": gen.ID,
		"state":         gen.State,
	})
}

// admit stores a new generation unless the session already has one in
// flight, in which case that one is returned as active. Only submissions
// through this handler are serialized; other API replicas are not.
func (h *GenerationHandler) admit(ctx context.Context, sessionID string, req models.GenerationRequest) (gen, active *models.Generation, err error) {
	h.submitMu.Lock()
	defer h.submitMu.Unlock()

	active, err = h.store.FindActive(ctx, sessionID)
	switch {
	case err == nil:
		return nil, active, nil
	case !errors.Is(err, models.ErrGenerationNotFound):
		return nil, nil, fmt.Errorf("failed to check active generation: %w", err)
	}

	gen = &models.Generation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Request:   req,
		State:     models.StateCreating,
		Progress:  models.ProgressCreating,
	}
	if err := h.store.Create(ctx, gen); err != nil {
		return nil, nil, fmt.Errorf("failed to create generation: %w", err)
	}
	return gen, nil, nil
}

// GetGeneration: GET /v1/api/generations/:generation_id
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	gen, err := h.store.Get(c.Request.Context(), c.Param("generation_id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generation": gen})
}

// GetActiveGeneration: GET /v1/api/sessions/:session_id/active
func (h *GenerationHandler) GetActiveGeneration(c *gin.Context) {
	gen, err := h.store.FindActive(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generation": gen})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrGenerationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "generation not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
