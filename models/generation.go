package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Client-side run states: idle → creating → generating → {completed, error}.
const (
	StateIdle       = "idle"
	StateCreating   = "creating"
	StateGenerating = "generating"
	StateCompleted  = "completed"
	StateError      = "error"
)

// IsActiveState reports whether a run in state is still in flight. A UI
// surface must not submit again while this holds.
func IsActiveState(state string) bool {
	return state == StateCreating || state == StateGenerating
}

func IsTerminalState(state string) bool {
	return state == StateCompleted || state == StateError
}

// Failure kinds carried by an error Outcome.
const (
	FailureCreate    = "create"
	FailureStart     = "start"
	FailureRemote    = "remote"
	FailureTimeout   = "timeout"
	FailureCancelled = "cancelled"
	FailureInternal  = "internal"
)

// PhaseBreakdown is the per-phase percentage of the latest poll.
type PhaseBreakdown map[string]int

func (p PhaseBreakdown) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(map[string]int{})
	}
	return json.Marshal(map[string]int(p))
}

func (p *PhaseBreakdown) Scan(value interface{}) error {
	return scanJSON(value, (*map[string]int)(p))
}

// URLMap holds platform → published URL.
type URLMap map[string]string

func (m URLMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]string{})
	}
	return json.Marshal(map[string]string(m))
}

func (m *URLMap) Scan(value interface{}) error {
	return scanJSON(value, (*map[string]string)(m))
}

// Snapshot is what the UI renders while a run is in flight.
type Snapshot struct {
	ProjectID    string         `json:"project_id,omitempty"`
	State        string         `json:"state"`
	Progress     int            `json:"progress"`
	Phase        string         `json:"phase,omitempty"`
	PhaseLabel   string         `json:"phase_label,omitempty"`
	Phases       PhaseBreakdown `json:"phases,omitempty"`
	RemoteStatus string         `json:"remote_status,omitempty"`
}

// Outcome is the terminal result of one run. Error is a message meant for
// the user, never a wrapped error chain.
type Outcome struct {
	State         string `json:"state"`
	ProjectID     string `json:"project_id,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
	PublishedURLs URLMap `json:"published_urls,omitempty"`
	Failure       string `json:"failure,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (o Outcome) Succeeded() bool {
	return o.State == StateCompleted
}

// Generation is the persisted record of one run.
type Generation struct {
	ID            string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SessionID     string            `gorm:"type:varchar(128);index" json:"sessionId"`
	Request       GenerationRequest `gorm:"type:json" json:"request"`
	State         string            `gorm:"type:varchar(32);index" json:"state"`
	Progress      int               `json:"progress"`
	Phase         string            `json:"phase"`
	PhaseLabel    string            `json:"phaseLabel"`
	Phases        PhaseBreakdown    `gorm:"type:json" json:"phases"`
	RemoteStatus  string            `json:"remoteStatus"`
	ProjectID     string            `gorm:"type:varchar(128)" json:"projectId"`
	VideoURL      string            `gorm:"type:text" json:"videoUrl"`
	ArchivedURL   string            `gorm:"type:text" json:"archivedUrl"`
	PublishedURLs URLMap            `gorm:"type:json" json:"publishedUrls"`
	Failure       string            `json:"failure"`
	Error         string            `gorm:"type:text" json:"error"`
	StartedAt     *time.Time        `json:"startedAt"`
	FinishedAt    *time.Time        `json:"finishedAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (Generation) TableName() string {
	return "generation"
}

// Apply replaces the live fields with snap. Nothing from the previous
// snapshot is carried over.
func (g *Generation) Apply(snap Snapshot) {
	if snap.ProjectID != "" {
		g.ProjectID = snap.ProjectID
	}
	g.State = snap.State
	g.Progress = snap.Progress
	g.Phase = snap.Phase
	g.PhaseLabel = snap.PhaseLabel
	g.Phases = snap.Phases
	g.RemoteStatus = snap.RemoteStatus
}

// Finish records a terminal outcome.
func (g *Generation) Finish(out Outcome, at time.Time) {
	g.State = out.State
	if out.ProjectID != "" {
		g.ProjectID = out.ProjectID
	}
	g.VideoURL = out.VideoURL
	g.PublishedURLs = out.PublishedURLs
	g.Failure = out.Failure
	g.Error = out.Error
	if out.State == StateCompleted {
		g.Progress = ProgressDone
	}
	g.FinishedAt = &at
}
