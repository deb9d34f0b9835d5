package service

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestTimeoutMessage(t *testing.T) {
	assert.Equal(t, "generation exceeds 30 minutes", timeoutMessage(DefaultPollInterval*DefaultMaxAttempts))
	assert.Equal(t, "generation exceeds 360ms", timeoutMessage(time.Millisecond*360))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "failed to create project", userMessage(msgCreateFailed, errors.New("boom")))
	assert.Equal(t, "failed to create project: the pipeline returned no project id",
		userMessage(msgCreateFailed, fmt.Errorf("create project: %w", ErrEmptyProjectID)))

	err := fmt.Errorf("start pipeline: %w", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}})
	assert.Equal(t, "failed to start generation: the pipeline did not respond in time", userMessage(msgStartFailed, err))
}

func TestPhaseBreakdown(t *testing.T) {
	assert.Nil(t, phaseBreakdown(nil))
	got := phaseBreakdown(map[string]float64{"script": 100, "images": 33.9})
	assert.Equal(t, 100, got["script"])
	assert.Equal(t, 33, got["images"])
}
