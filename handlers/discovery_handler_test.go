package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"discoverydraft-backend/config"
	"discoverydraft-backend/metrics"
	"discoverydraft-backend/models"
	"discoverydraft-backend/pipeline"
	"discoverydraft-backend/repository"
	"discoverydraft-backend/service"
	"discoverydraft-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	router  *gin.Engine
	pending []func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	p, err := pipeline.New(config.DefaultPipelineConfig(),
		pipeline.WithMetrics(collector),
		pipeline.WithRenderer(pipeline.RendererFunc(func(context.Context, models.GenerationRequest) error {
			return nil
		})),
		pipeline.WithDispatcherOptions(pipeline.DispatchWithWait(func(context.Context, time.Duration) error { return nil })),
	)
	require.NoError(t, err)

	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := service.NewDiscoveryService(
		service.WithRunStore(repository.NewMemoryRunRepository()),
		service.WithArchive(archive),
		service.WithPipeline(p),
	)

	ts := &testServer{}
	h := NewDiscoveryHandler(svc, WithBackground(func(fn func()) {
		ts.pending = append(ts.pending, fn)
	}))
	ts.router = NewRouter(h, reg)
	return ts
}

// drain runs the background work queued by StartRun
func (ts *testServer) drain() {
	for _, fn := range ts.pending {
		fn()
	}
	ts.pending = nil
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

const submissionJSON = `{
  "case_number": "24STCV01234",
  "property": {"street": "123 Main St", "city": "Los Angeles", "state": "CA", "zip": "90012"},
  "plaintiffs": [
    {"first_name": "Maria", "last_name": "Lopez", "is_head_of_household": true, "unit": "4"},
    {"first_name": "Diego", "last_name": "Lopez", "unit": "4", "is_minor": true}
  ],
  "defendants": [{"entity_name": "Acme Properties LLC", "kind": "owner", "is_entity": true}],
  "issues": {"vermin": {"rats": true}, "plumbing.leaks": true, "teleporters.broken": true}
}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/discovery/preview", submissionJSON)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	var data struct {
		Summary PreviewSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Summary.CaseUnits)
	assert.Equal(t, 3, data.Summary.DocumentSets)
	assert.Equal(t, 1, data.Summary.FlagWarnings)
}

func TestPreview_ValidationFailure(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/discovery/preview", `{"plaintiffs": [], "defendants": []}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Message, "case_number")
}

func TestPreview_BadJSON(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/discovery/preview", `{"case_number": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

func TestStartRun_ValidationFailure(t *testing.T) {
	ts := newTestServer(t)
	body := strings.Replace(submissionJSON, `"24STCV01234"`, `"`+strings.Repeat("9", pipeline.MaxCaseNumberLength+1)+`"`, 1)

	w, env := ts.do(t, http.MethodPost, "/api/discovery/runs", body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Message, "case_number")
	assert.Empty(t, ts.pending)
}

func TestRunLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodPost, "/api/discovery/runs", submissionJSON)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var started struct {
		RunID  uuid.UUID `json:"run_id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.Equal(t, "pending", started.Status)

	w, env = ts.do(t, http.MethodGet, "/api/discovery/runs/"+started.RunID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var run models.DiscoveryRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, models.RunStatusPending, run.Status)

	ts.drain()

	w, env = ts.do(t, http.MethodGet, "/api/discovery/runs/"+started.RunID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 3, run.Result.DispatchSummary.TotalSets)
	assert.Len(t, run.Result.FlagWarnings, 1)

	w, env = ts.do(t, http.MethodGet, "/api/discovery/runs/"+started.RunID.String()+"/manifest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var manifest service.Manifest
	require.NoError(t, json.Unmarshal(env.Data, &manifest))
	assert.Len(t, manifest.Requests, 3)

	w, env = ts.do(t, http.MethodGet, "/api/discovery/runs?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []models.DiscoveryRun
	require.NoError(t, json.Unmarshal(env.Data, &runs))
	assert.Len(t, runs, 1)

	w, _ = ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "discovery_render_requests_total")
}

func TestGetRun_Errors(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(t, http.MethodGet, "/api/discovery/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/api/discovery/runs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, env = ts.do(t, http.MethodGet, "/api/discovery/runs/"+uuid.NewString()+"/manifest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
