package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"videogen-server/models"
	"videogen-server/service"
)

func TestPipelineClient_CreateProject(t *testing.T) {
	var got models.GenerationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"created","prompt":"demo"}`))
	}))
	defer srv.Close()

	client := service.NewPipelineClient(srv.URL+"/api/", "secret", time.Second)
	project, err := client.CreateProject(context.Background(), models.GenerationRequest{Prompt: "demo", Duration: "30s", Platforms: []string{"youtube"}})

	require.NoError(t, err)
	assert.Equal(t, "p1", project.ID)
	assert.Equal(t, models.ProjectStatusCreated, project.Status)
	assert.Equal(t, "demo", got.Prompt)
	assert.Equal(t, []string{"youtube"}, got.Platforms)
}

func TestPipelineClient_CreateProjectFallbackIDs(t *testing.T) {
	bodies := map[string]string{
		"project_id": `{"project_id":"p2"}`,
		"data.id":    `{"data":{"id":"p3"}}`,
	}
	want := map[string]string{"project_id": "p2", "data.id": "p3"}

	for name, body := range bodies {
		body := body
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		project, err := service.NewPipelineClient(srv.URL, "", time.Second).CreateProject(context.Background(), models.GenerationRequest{Prompt: "demo"})
		srv.Close()

		require.NoError(t, err, name)
		assert.Equal(t, want[name], project.ID, name)
	}
}

func TestPipelineClient_CreateProjectMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"created"}`))
	}))
	defer srv.Close()

	_, err := service.NewPipelineClient(srv.URL, "", time.Second).CreateProject(context.Background(), models.GenerationRequest{Prompt: "demo"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrEmptyProjectID))
}

func TestPipelineClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream down`))
	}))
	defer srv.Close()

	client := service.NewPipelineClient(srv.URL, "", time.Second)

	_, err := client.CreateProject(context.Background(), models.GenerationRequest{Prompt: "demo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "upstream down")

	err = client.StartPipeline(context.Background(), "p1", false)
	assert.Error(t, err)

	_, err = client.GetStatus(context.Background(), "p1")
	assert.Error(t, err)
}

func TestPipelineClient_StartStatusAndGet(t *testing.T) {
	var start struct {
		AutoPublish bool `json:"auto_publish"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/p1/start", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&start))
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/projects/p1/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"status":"processing","current_phase":"voice","progress":{"overall":42.5,"phases":{"script":100,"images":100,"voice":10}}}`))
	})
	mux.HandleFunc("/projects/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p1","status":"completed","video_url":"https://x/v.mp4","published_urls":{"youtube":"https://yt/v"},"created_at":"2025-01-02T03:04:05"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := service.NewPipelineClient(srv.URL, "", time.Second)
	ctx := context.Background()

	require.NoError(t, client.StartPipeline(ctx, "p1", true))
	assert.True(t, start.AutoPublish)

	status, err := client.GetStatus(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusProcessing, status.Status)
	assert.Equal(t, models.PhaseVoice, status.CurrentPhase)
	assert.Equal(t, 42.5, status.Progress.Overall)
	assert.Equal(t, 10.0, status.Progress.Phases["voice"])

	project, err := client.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://x/v.mp4", project.VideoURL)
	assert.Equal(t, "https://yt/v", project.PublishedURLs["youtube"])
	assert.Equal(t, 2025, project.CreatedAt.Year())
}

func TestOrchestrator_AgainstHTTPPipeline(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p1"}`))
	})
	mux.HandleFunc("/projects/p1/start", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/projects/p1/status", func(w http.ResponseWriter, r *http.Request) {
		polls++
		switch polls {
		case 1:
			w.Write([]byte(`{"status":"processing","current_phase":"images","progress":{"overall":40}}`))
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.Write([]byte(`{"status":"completed","progress":{"overall":100}}`))
		}
	})
	mux.HandleFunc("/projects/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p1","status":"completed","video_url":"https://x/v.mp4"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	orch := service.NewOrchestrator(service.NewPipelineClient(srv.URL, "", time.Second), time.Millisecond, 10)
	rec := &recorder{}
	out := orch.Run(context.Background(), models.GenerationRequest{Prompt: "demo"}, rec.observe)

	assert.Equal(t, models.StateCompleted, out.State)
	assert.Equal(t, "https://x/v.mp4", out.VideoURL)
	assert.Equal(t, 3, polls)
	assert.Equal(t, []int{0, 20, 58, 100}, rec.progress())
}
