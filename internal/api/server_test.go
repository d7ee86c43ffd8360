package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/metrics"
	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services"
	"intrusion-worker-go/internal/services/frameprocessing"
	"intrusion-worker-go/internal/services/streamcapture"
	"intrusion-worker-go/internal/session"
	"intrusion-worker-go/internal/stream"
	"intrusion-worker-go/internal/testutil"
)

func testContainer(cfg *config.Config) *services.ServiceContainer {
	opener := testutil.NewOpener(func(models.SourceRef) *testutil.Source { return testutil.NewFileSource(3) })
	capture := streamcapture.NewService(cfg, opener, &testutil.Imager{})
	pipeline := stream.NewPipeline(stream.OptionsFromConfig(cfg), capture, frameprocessing.NopDetector{}, &testutil.Renderer{})
	registry := streamcapture.NewRegistry()
	m := metrics.New()
	return &services.ServiceContainer{
		Config:   cfg,
		Metrics:  m,
		Registry: registry,
		Capture:  capture,
		Picker:   streamcapture.NewCommandPicker("true"),
		Pipeline: pipeline,
		Sessions: session.NewController(cfg, registry, capture, pipeline, zerolog.Nop()).WithMetrics(m),
	}
}

func testServer() *Server {
	cfg := &config.Config{
		WorkerID:       "intrusion-test",
		Version:        "1.0.0",
		Port:           0,
		AllowedOrigins: []string{"http://localhost:5173"},
		MetricsEnabled: true,
		SwaggerHost:    "localhost:8000",
		FrameWidth:     1280,
		FrameHeight:    720,
		TargetFPS:      30,
	}
	return newServer(cfg, testContainer(cfg))
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutes(t *testing.T) {
	s := testServer()

	w := get(s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "intrusion_active_sessions")

	w = get(s, "/api/info")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/ws/intrusion")

	w = get(s, "/system/stats")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsRouteDisabled(t *testing.T) {
	cfg := &config.Config{WorkerID: "intrusion-test", MetricsEnabled: false}
	s := newServer(cfg, testContainer(cfg))

	assert.Equal(t, http.StatusNotFound, get(s, "/metrics").Code)
}

func TestShutdownCancelsSessions(t *testing.T) {
	s := testServer()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.Shutdown(ctx))
	assert.Error(t, s.baseCtx.Err())
}
