package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/sdrwatch/pkg/models"
)

const dataBody = `{
	"start_mhz": 100,
	"end_mhz": 130,
	"bandwidth_mhz": 10,
	"sdrs": [
		{
			"address": "http://10.0.0.5:8080",
			"latitude": 51.5,
			"longitude": -0.12,
			"datetime": "2025-06-01T12:00:00",
			"data": [
				{"frequency": 125, "noise": -101.5},
				{"frequency": 105, "noise": -120},
				{"frequency": 115, "noise": -95.25}
			]
		},
		{"address": "http://10.0.0.6:8080", "latitude": 0, "longitude": 0, "datetime": "", "data": []}
	]
}`

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        map[string]interface{}
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.reqs...)
}

func newCollector(t *testing.T, status int, respBody string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := recordedRequest{method: r.Method, path: r.URL.Path, contentType: r.Header.Get("Content-Type")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &req.body))
		}
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, req)
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestClient(t *testing.T, baseURL string, legacy bool) Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL + "/", Timeout: 2 * time.Second, LegacyLatitudeKey: legacy})
	require.NoError(t, err)
	return c
}

func TestFetchData(t *testing.T) {
	srv, rec := newCollector(t, http.StatusOK, dataBody)
	c := newTestClient(t, srv.URL, true)

	snap, err := c.FetchData(context.Background())
	require.NoError(t, err)

	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].method)
	assert.Equal(t, "/data", reqs[0].path)

	assert.Equal(t, models.FrequencyTask{StartMhz: 100, EndMhz: 130, BandwidthMhz: 10}, snap.Task)
	require.Len(t, snap.Nodes, 2)
	node := snap.Nodes[0]
	assert.Equal(t, "http://10.0.0.5:8080", node.Address)
	assert.Equal(t, 51.5, node.Latitude)
	assert.Equal(t, -0.12, node.Longitude)
	assert.Equal(t, "2025-06-01T12:00:00", node.Timestamp)
	// order is kept exactly as received
	assert.Equal(t, []models.FrequencyNoise{
		{FrequencyMhz: 125, NoiseDbm: -101.5},
		{FrequencyMhz: 105, NoiseDbm: -120},
		{FrequencyMhz: 115, NoiseDbm: -95.25},
	}, node.Samples)
	assert.Empty(t, snap.Nodes[1].Samples)
}

func TestFetchData_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
		missing   bool
		code      int
		message   string
	}{
		{name: "not json", status: http.StatusOK, body: "<html>", malformed: true},
		{name: "missing task", status: http.StatusOK, body: `{"sdrs": []}`, malformed: true, missing: true},
		{name: "missing sdrs", status: http.StatusOK, body: `{"start_mhz": 1, "end_mhz": 2, "bandwidth_mhz": 1}`, malformed: true, missing: true},
		{name: "wrong types", status: http.StatusOK, body: `{"start_mhz": "one"}`, malformed: true},
		{name: "server error with message", status: http.StatusInternalServerError, body: `{"error": "boom"}`, code: 500, message: "boom"},
		{name: "server error without body", status: http.StatusBadGateway, body: "", code: 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newCollector(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL, true)

			_, err := c.FetchData(context.Background())
			require.Error(t, err)
			if tt.malformed {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				assert.Equal(t, tt.missing, models.IsMissingFields(err))
				return
			}
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.code, statusErr.StatusCode)
			assert.Equal(t, tt.message, statusErr.Message)
		})
	}
}

func TestFetchData_Unreachable(t *testing.T) {
	srv, _ := newCollector(t, http.StatusOK, dataBody)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, true)
	_, err := c.FetchData(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestAddNode(t *testing.T) {
	node := models.NodeRegistration{Address: "http://10.0.0.5:8080", Latitude: 45, Longitude: -120}

	t.Run("legacy latitude key", func(t *testing.T) {
		srv, rec := newCollector(t, http.StatusOK, `"Node added successfully"`)
		c := newTestClient(t, srv.URL, true)

		require.NoError(t, c.AddNode(context.Background(), node))
		reqs := rec.all()
		require.Len(t, reqs, 1)
		req := reqs[0]
		assert.Equal(t, http.MethodPost, req.method)
		assert.Equal(t, "/node/add", req.path)
		assert.Equal(t, "application/json", req.contentType)
		assert.Equal(t, map[string]interface{}{
			"address":   "http://10.0.0.5:8080",
			"lalitude":  45.0,
			"longitude": -120.0,
		}, req.body)
	})

	t.Run("corrected latitude key", func(t *testing.T) {
		srv, rec := newCollector(t, http.StatusOK, "")
		c := newTestClient(t, srv.URL, false)

		require.NoError(t, c.AddNode(context.Background(), node))
		reqs := rec.all()
		require.Len(t, reqs, 1)
		assert.Equal(t, map[string]interface{}{
			"address":   "http://10.0.0.5:8080",
			"latitude":  45.0,
			"longitude": -120.0,
		}, reqs[0].body)
	})

	t.Run("rejected", func(t *testing.T) {
		srv, _ := newCollector(t, http.StatusInternalServerError, `{"error": "Unable to add/update node"}`)
		c := newTestClient(t, srv.URL, true)

		err := c.AddNode(context.Background(), node)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "add node", statusErr.Op)
		assert.Contains(t, err.Error(), "Unable to add/update node")
	})
}

func TestRemoveNode(t *testing.T) {
	srv, rec := newCollector(t, http.StatusOK, "")
	c := newTestClient(t, srv.URL, true)

	require.NoError(t, c.RemoveNode(context.Background(), "http://10.0.0.5:8080"))
	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/node/remove", reqs[0].path)
	assert.Equal(t, map[string]interface{}{"address": "http://10.0.0.5:8080"}, reqs[0].body)
}

func TestTasking(t *testing.T) {
	srv, rec := newCollector(t, http.StatusOK, "")
	c := newTestClient(t, srv.URL, true)

	task := models.FrequencyTask{StartMhz: 10, EndMhz: 110, BandwidthMhz: 10}
	require.NoError(t, c.Tasking(context.Background(), task))
	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/tasking", reqs[0].path)
	assert.Equal(t, map[string]interface{}{
		"start_mhz":     10.0,
		"end_mhz":       110.0,
		"bandwidth_mhz": 10.0,
	}, reqs[0].body)
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "://bad"} {
		_, err := NewClient(Config{BaseURL: base})
		assert.Error(t, err, base)
	}
}
