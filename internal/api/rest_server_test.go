package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/app"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
)

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*RestServer, *app.Service) {
	t.Helper()
	logging.InitForTests()

	cfg := config.Default()
	cfg.World.Source = "memory"
	cfg.World.ChunkMinX, cfg.World.ChunkMinY = 0, 0
	cfg.World.ChunkMaxX, cfg.World.ChunkMaxY = 0, 0
	cfg.World.SlabMin, cfg.World.SlabMax = -1, 0
	cfg.World.CacheSlabs = false

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := eventbus.NewMemoryBus(16)
	t.Cleanup(bus.Close)

	svc, err := app.NewService(ctx, cfg, bus)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.LoadInitialWorld(ctx))

	rs := NewRestServer(Config{Service: svc, Metrics: true, Registry: prometheus.NewRegistry()})
	return rs, svc
}

func do(t *testing.T, rs *RestServer, method, url, body string) (int, testResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)

	var resp testResponse
	if strings.HasPrefix(url, "/api") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func TestHealth(t *testing.T) {
	rs, _ := newTestServer(t)
	code, _ := do(t, rs, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestStats(t *testing.T) {
	rs, _ := newTestServer(t)
	code, resp := do(t, rs, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	var data struct {
		World struct {
			Chunks     int            `json:"chunks"`
			Slabs      map[string]int `json:"slabs"`
			GraphNodes int            `json:"graph_nodes"`
		} `json:"world"`
		Eventbus *eventbus.Stats `json:"eventbus"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 1, data.World.Chunks)
	assert.Positive(t, data.World.Slabs["done"])
	assert.Positive(t, data.World.GraphNodes)
	assert.NotNil(t, data.Eventbus)
}

func TestGetBlock(t *testing.T) {
	rs, _ := newTestServer(t)

	code, resp := do(t, rs, http.MethodGet, "/api/block?pos=1,1,1", "")
	require.Equal(t, http.StatusOK, code)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, true, data["solid"])
	assert.Contains(t, data["visible"], "top")

	code, resp = do(t, rs, http.MethodGet, "/api/block?pos=1,1,2", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Contains(t, data, "area")

	code, _ = do(t, rs, http.MethodGet, "/api/block?pos=900,0,0", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, rs, http.MethodGet, "/api/block?pos=1,1", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetSlab(t *testing.T) {
	rs, _ := newTestServer(t)

	code, resp := do(t, rs, http.MethodGet, "/api/slab/0/0/0", "")
	require.Equal(t, http.StatusOK, code)
	var data struct {
		State string            `json:"state"`
		Areas []json.RawMessage `json:"areas"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "done", data.State)
	assert.NotEmpty(t, data.Areas)

	code, _ = do(t, rs, http.MethodGet, "/api/slab/0/x/0", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFindPath(t *testing.T) {
	rs, _ := newTestServer(t)

	code, resp := do(t, rs, http.MethodGet, "/api/path?from=0,0,2&to=3,0,2", "")
	require.Equal(t, http.StatusOK, code, resp.Message)
	var data struct {
		Waypoints []json.RawMessage `json:"waypoints"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.GreaterOrEqual(t, len(data.Waypoints), 2)

	// внутри камня стоять нельзя
	code, _ = do(t, rs, http.MethodGet, "/api/path?from=0,0,1&to=3,0,2", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, rs, http.MethodGet, "/api/path?from=0,0,2&to=3,0,2&goal=teleport", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, rs, http.MethodGet, "/api/path?from=0,0,2&to=3,0,2&height=9", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSetBlocks(t *testing.T) {
	rs, svc := newTestServer(t)

	code, resp := do(t, rs, http.MethodPost, "/api/blocks", `{"from":{"x":2,"y":2,"z":2},"block":"stone"}`)
	require.Equal(t, http.StatusAccepted, code, resp.Message)
	assert.Equal(t, 1, svc.PendingUpdates())

	code, _ = do(t, rs, http.MethodPost, "/api/blocks", `{"from":{"x":2,"y":2,"z":2},"block":"unobtainium"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, rs, http.MethodPost, "/api/blocks", `{"from":`)
	assert.Equal(t, http.StatusBadRequest, code)

	st, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Changed)
	require.NoError(t, svc.Loader().BlockUntilAllDone(context.Background(), 5*time.Second, nil))

	code, resp = do(t, rs, http.MethodGet, "/api/block?pos=2,2,2", "")
	require.Equal(t, http.StatusOK, code)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, true, data["solid"])
}

func TestRequestSlabsTooLarge(t *testing.T) {
	rs, _ := newTestServer(t)
	code, _ := do(t, rs, http.MethodPost, "/api/slabs",
		`{"chunk_min":{"x":-100,"y":-100,"z":0},"chunk_max":{"x":100,"y":100,"z":0}}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMetricsEndpoint(t *testing.T) {
	rs, _ := newTestServer(t)
	do(t, rs, http.MethodGet, "/health", "")

	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "world_api_http_request_duration_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1д 1ч 0м 0с", formatUptime(25*time.Hour))
}
