package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/sdrwatch/internal/api/handlers"
	"github.com/RMahshie/sdrwatch/internal/dashboard"
	"github.com/RMahshie/sdrwatch/internal/dialog"
	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/internal/poller"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

// fakeCollector serves a fixed snapshot and accepts every write
type fakeCollector struct {
	snap models.Snapshot
}

func (f *fakeCollector) FetchData(ctx context.Context) (models.Snapshot, error) { return f.snap, nil }
func (f *fakeCollector) AddNode(ctx context.Context, node models.NodeRegistration) error {
	return nil
}
func (f *fakeCollector) RemoveNode(ctx context.Context, address string) error { return nil }
func (f *fakeCollector) Tasking(ctx context.Context, task models.FrequencyTask) error {
	f.snap.Task = task
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *poller.Poller) {
	t.Helper()

	fc := &fakeCollector{snap: models.Snapshot{
		Task: models.FrequencyTask{StartMhz: 100, EndMhz: 140, BandwidthMhz: 10},
		Nodes: []models.NodeReading{{
			Address: "http://10.0.0.5:8080",
			Samples: []models.FrequencyNoise{{FrequencyMhz: 105, NoiseDbm: -100}},
		}},
	}}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	p := poller.New(fc, poller.Config{}, metrics)
	board := dashboard.New(p, dashboard.Config{ContainerWidthPx: 1000, LabelCharWidthPx: 9, LabelPaddingPx: 24})
	t.Cleanup(board.Close)

	nodes := dialog.NewNodeRegistry(fc, p, time.Second, metrics)
	tasking := dialog.NewTaskConfigurator(fc, board, p, time.Second, metrics)
	live := handlers.NewLiveHub(p, nil, metrics)
	p.Subscribe(live.Broadcast)

	router := chi.NewRouter()
	humaAPI := humachi.New(router, huma.DefaultConfig("SDR Watch API", "test"))
	RegisterRoutes(router, humaAPI, Deps{
		Source:   p,
		Viewer:   board,
		Dialogs:  handlers.NewDialogHandler(nodes, nodes, tasking),
		Live:     live,
		Gatherer: registry,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		live.Close()
		srv.Close()
	})
	return srv, p
}

func post(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRoutes_SnapshotLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = post(t, srv.URL+"/api/refresh", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/view?width=1000")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view dashboard.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.True(t, view.Ready)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "red", view.Rows[0].Cells[0].Color)
	assert.Equal(t, float64(4), view.Grid.BinCount)
}

func TestRoutes_TaskingThroughHTTP(t *testing.T) {
	srv, p := newTestServer(t)
	_, err := p.Refresh(context.Background())
	require.NoError(t, err)

	resp := post(t, srv.URL+"/api/dialogs/tasking/open", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, body := range []string{
		`{"field": "startMhz", "value": "10"}`,
		`{"field": "endMhz", "value": "110"}`,
		`{"field": "bandwidthMhz", "value": "10"}`,
	} {
		resp = post(t, srv.URL+"/api/dialogs/tasking/fields", body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp = post(t, srv.URL+"/api/dialogs/tasking/submit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result dialog.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Submitted)
	assert.False(t, result.View.Visible)

	assert.Equal(t, models.FrequencyTask{StartMhz: 10, EndMhz: 110, BandwidthMhz: 10}, p.Snapshot().Task)
}

func TestRoutes_PageMetricsAndLive(t *testing.T) {
	srv, p := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/live", nil)
	require.NoError(t, err)
	defer conn.Close()

	// delivered either on connect or by the broadcast, whichever comes first
	_, err = p.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg handlers.LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "http://10.0.0.5:8080", msg.Snapshot.Nodes[0].Address)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(page), "http://10.0.0.5:8080")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	text, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(text), `sdrwatch_polls_total{result="success"} 1`)
	assert.Contains(t, string(text), "sdrwatch_live_clients 1")
}
