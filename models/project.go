package models

import (
	"math"
	"strings"
)

// Remote project statuses as reported by the pipeline API.
const (
	ProjectStatusQueued     = "queued"
	ProjectStatusCreated    = "created"
	ProjectStatusProcessing = "processing"
	ProjectStatusCompleted  = "completed"
	ProjectStatusFailed     = "failed"
	ProjectStatusError      = "error"
)

// Pipeline phases, in execution order.
const (
	PhaseScript  = "script"
	PhaseImages  = "images"
	PhaseVoice   = "voice"
	PhaseMusic   = "music"
	PhaseRender  = "render"
	PhasePublish = "publish"
)

var Phases = []string{PhaseScript, PhaseImages, PhaseVoice, PhaseMusic, PhaseRender, PhasePublish}

// Project is the remote resource created for one submission. Only the
// pipeline mutates it.
type Project struct {
	ID            string            `json:"id"`
	Prompt        string            `json:"prompt"`
	Duration      string            `json:"duration"`
	AspectRatio   string            `json:"aspect_ratio"`
	Style         string            `json:"style"`
	Language      string            `json:"language"`
	Platforms     []string          `json:"platforms"`
	Status        string            `json:"status"`
	VideoURL      string            `json:"video_url,omitempty"`
	PublishedURLs map[string]string `json:"published_urls,omitempty"`
	CreatedAt     Timestamp         `json:"created_at"`
	UpdatedAt     Timestamp         `json:"updated_at"`
}

type Progress struct {
	Overall float64            `json:"overall"`
	Phases  map[string]float64 `json:"phases"`
}

// ProjectStatus is one poll result. Each one replaces the last; they are
// never merged.
type ProjectStatus struct {
	Status       string   `json:"status"`
	CurrentPhase string   `json:"current_phase"`
	Progress     Progress `json:"progress"`
	Error        string   `json:"error,omitempty"`
}

type StatusClass int

const (
	StatusUnknown StatusClass = iota
	StatusPending
	StatusRunning
	StatusSucceeded
	StatusFailed
)

// ClassifyStatus maps a remote status tag onto the client's view of it.
// Unrecognized tags are StatusUnknown, which callers treat as non-terminal.
func ClassifyStatus(status string) StatusClass {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case ProjectStatusQueued, ProjectStatusCreated:
		return StatusPending
	case ProjectStatusProcessing:
		return StatusRunning
	case ProjectStatusCompleted:
		return StatusSucceeded
	case ProjectStatusFailed, ProjectStatusError:
		return StatusFailed
	default:
		return StatusUnknown
	}
}

func (c StatusClass) IsTerminal() bool {
	return c == StatusSucceeded || c == StatusFailed
}

// StatusRank orders statuses along queued/created < processing < terminal.
// Unknown statuses rank 0 and never count as a regression.
func StatusRank(status string) int {
	switch ClassifyStatus(status) {
	case StatusPending:
		return 1
	case StatusRunning:
		return 2
	case StatusSucceeded, StatusFailed:
		return 3
	default:
		return 0
	}
}

// Progress bands shown to the user. The first 30 points cover project
// creation and pipeline start.
const (
	ProgressCreating = 0
	ProgressStarted  = 20
	ProgressPollBase = 30
	ProgressDone     = 100
)

// DisplayProgress maps the pipeline's overall percentage into [30, 100].
func DisplayProgress(overall float64) int {
	if math.IsNaN(overall) || overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}
	return ProgressPollBase + int(math.Floor(overall*0.7))
}
