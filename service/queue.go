package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"videogen-server/config"

	"github.com/hibiken/asynq"
)

const (
	TypeRunGeneration = "generation:run"
)

type GenerationPayload struct {
	GenerationID string `json:"generation_id"`
}

var QueueClient *asynq.Client

// taskTimeout bounds a single run: the poll ceiling plus slack for the
// create, start and finalize calls.
var taskTimeout = DefaultPollInterval*DefaultMaxAttempts + 5*time.Minute

func InitQueue() {
	cfg := config.AppConfig
	QueueClient = asynq.NewClient(redisOpt(cfg))
	taskTimeout = cfg.Poll.Interval*time.Duration(cfg.Poll.MaxAttempts) + 5*time.Minute
}

// TaskTimeout is the longest a single run may take.
func TaskTimeout() time.Duration {
	return taskTimeout
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	}
}

// NewGenerationTask builds the task for one run. Runs are never retried:
// a failed generation is reported, not resubmitted.
func NewGenerationTask(generationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(GenerationPayload{GenerationID: generationID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}
	return asynq.NewTask(TypeRunGeneration, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(taskTimeout),
		asynq.Retention(24*time.Hour),
	), nil
}

func EnqueueGeneration(generationID string) error {
	task, err := NewGenerationTask(generationID)
	if err != nil {
		return err
	}
	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Printf("[Queue] generation enqueued: ID=%s, TaskID=%s", generationID, info.ID)
	return nil
}
