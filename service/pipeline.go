package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"videogen-server/models"
)

var ErrEmptyProjectID = errors.New("response missing project id")

// PipelineAPI is the remote generation service the orchestrator drives.
type PipelineAPI interface {
	CreateProject(ctx context.Context, req models.GenerationRequest) (*models.Project, error)
	StartPipeline(ctx context.Context, projectID string, autoPublish bool) error
	GetStatus(ctx context.Context, projectID string) (*models.ProjectStatus, error)
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
}

// PipelineClient talks JSON over HTTP to the pipeline API.
type PipelineClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPipelineClient(baseURL, apiKey string, timeout time.Duration) *PipelineClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PipelineClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type startRequest struct {
	AutoPublish bool `json:"auto_publish"`
}

// CreateProject posts the request to /projects and returns the created
// project. The id is read from "id", falling back to "project_id" and
// "data.id".
func (c *PipelineClient) CreateProject(ctx context.Context, req models.GenerationRequest) (*models.Project, error) {
	body, err := c.do(ctx, http.MethodPost, "/projects", req)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	var project models.Project
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, fmt.Errorf("decode create response: %w, body: %s", err, truncate(body))
	}
	if project.ID == "" {
		var alt struct {
			ProjectID string `json:"project_id"`
			Data      struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		_ = json.Unmarshal(body, &alt)
		switch {
		case alt.ProjectID != "":
			project.ID = alt.ProjectID
		case alt.Data.ID != "":
			project.ID = alt.Data.ID
		default:
			return nil, fmt.Errorf("create project: %w, body: %s", ErrEmptyProjectID, truncate(body))
		}
	}
	return &project, nil
}

func (c *PipelineClient) StartPipeline(ctx context.Context, projectID string, autoPublish bool) error {
	if _, err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/start", startRequest{AutoPublish: autoPublish}); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	return nil
}

func (c *PipelineClient) GetStatus(ctx context.Context, projectID string) (*models.ProjectStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	var status models.ProjectStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w, body: %s", err, truncate(body))
	}
	return &status, nil
}

func (c *PipelineClient) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	body, err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID), nil)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	var project models.Project
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, fmt.Errorf("decode project: %w, body: %s", err, truncate(body))
	}
	return &project, nil
}

func (c *PipelineClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body))
	}
	return body, nil
}

func truncate(body []byte) string {
	s := string(body)
	if len(s) > 2000 {
		s = s[:2000] + "..."
	}
	return s
}
