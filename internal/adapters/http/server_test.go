package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weft"
	"github.com/aretw0/weft/internal/demo"
	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/observability"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	flow, err := demo.Flow()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	eng, err := weft.New(flow,
		weft.WithFiller(demo.Filler()),
		weft.WithLifecycleHooks(metrics.Hooks()),
	)
	require.NoError(t, err)

	s := &Server{Engine: eng, Flow: flow, Gatherer: reg, Logger: logging.NewNop()}
	return s, NewHandler(s)
}

func TestGetHealth(t *testing.T) {
	_, handler := newTestServer(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestPostRun(t *testing.T) {
	_, handler := newTestServer(t)

	body := strings.NewReader(`{"input": {"name": "Ann", "city": "Lisbon"}}`)
	req, _ := http.NewRequest("POST", "/runs", body)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, []string{"Visitor", "Greeting"}, resp.Frames)
	assert.Equal(t, "Hello Ann, enjoy the sunny weather in Lisbon!", resp.Response)

	req, _ = http.NewRequest("GET", "/graph", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "class f_Greeting current;")
	assert.Contains(t, rr.Body.String(), "class f_Visitor visited;")
}

func TestPostRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing input", `{"input": {"name": "Ann"}}`, http.StatusBadRequest},
		{"unknown start", `{"start": "Nowhere"}`, http.StatusBadRequest},
		{"dependency failure", `{"input": {"name": "Ann", "city": "Atlantis"}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, handler := newTestServer(t)
			req, _ := http.NewRequest("POST", "/runs", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestGetMetrics(t *testing.T) {
	_, handler := newTestServer(t)

	req, _ := http.NewRequest("POST", "/runs", strings.NewReader(`{"input": {"name": "Bo", "city": "Oslo"}}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	// Hooks are dispatched asynchronously and may land after the run returns.
	var body string
	assert.Eventually(t, func() bool {
		req, _ := http.NewRequest("GET", "/metrics", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		body = rr.Body.String()
		return rr.Code == http.StatusOK && strings.Contains(body, `weft_routes_total{frame="Consolation"`)
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, body, `weft_frames_started_total{frame="Visitor"} 1`)
	assert.Contains(t, body, `weft_dependencies_resolved_total{cached="false",function="weather"} 1`)
}
