package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pothiers/cadence/internal/aggregator"
	"github.com/pothiers/cadence/internal/hub"
	"github.com/pothiers/cadence/internal/model"
	"github.com/pothiers/cadence/internal/report"
	"github.com/pothiers/cadence/internal/series"
)

func testReport(t *testing.T) *report.Report {
	t.Helper()
	t0 := time.Date(2014, 1, 1, 20, 0, 0, 0, time.UTC)
	tl, err := series.Build(map[string]model.Record{
		"/a": {Key: "/a", Category: "x", Timestamp: t0, Volume: 2},
		"/b": {Key: "/b", Category: "x", Timestamp: t0.Add(10 * time.Minute), Volume: 4},
		"/c": {Key: "/c", Category: "y", Timestamp: t0.Add(20 * time.Minute), Volume: 1},
	})
	require.NoError(t, err)
	table, err := aggregator.Aggregate(context.Background(), tl, 10*time.Minute)
	require.NoError(t, err)
	return report.New(model.Quality{Records: 3}, table)
}

func startHub(t *testing.T) (*hub.Hub, chan<- *report.Report) {
	t.Helper()
	input := make(chan *report.Report, 1)
	h := hub.New(input, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Start(ctx)
	return h, input
}

func publish(t *testing.T, h *hub.Hub, input chan<- *report.Report, rep *report.Report) {
	t.Helper()
	input <- rep
	require.Eventually(t, func() bool { return h.Latest() == rep }, time.Second, 10*time.Millisecond)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestAPIBeforeFirstReport(t *testing.T) {
	h, _ := startHub(t)
	s := New(h, "0", 17, nil)

	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/summary").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/rates").Code)
}

func TestAPIRates(t *testing.T) {
	h, input := startHub(t)
	s := New(h, "0", 17, nil)
	publish(t, h, input, testReport(t))

	w := get(t, s, "/api/rates?category=x")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []aggregator.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "x", e.Category)
	}
	assert.InDelta(t, 0.01, entries[0].Rate, 1e-12)

	w = get(t, s, "/api/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"categories":["x","y"]`)
}

func TestAPIVolumes(t *testing.T) {
	h, input := startHub(t)
	s := New(h, "0", 17, nil)
	publish(t, h, input, testReport(t))

	w := get(t, s, "/api/volumes")
	require.Equal(t, http.StatusOK, w.Code)
	var samples []series.Sample
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &samples))
	require.Len(t, samples, 3)
	assert.Equal(t, "x", samples[0].Category)
	assert.Equal(t, 2.0, samples[0].Volume)

	w = get(t, s, "/api/volumes?category=y")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, 1.0, samples[0].Volume)
}

func TestAPIChart(t *testing.T) {
	h, input := startHub(t)
	s := New(h, "0", 17, nil)
	publish(t, h, input, testReport(t))

	w := get(t, s, "/api/chart.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
}

func TestAPIChartWithoutTable(t *testing.T) {
	h, input := startHub(t)
	s := New(h, "0", 17, nil)
	publish(t, h, input, report.New(model.Quality{Records: 1, MissingSize: 1}, nil))

	assert.Equal(t, http.StatusConflict, get(t, s, "/api/chart.png").Code)
}

func TestWebSocketPushesReports(t *testing.T) {
	h, input := startHub(t)
	s := New(h, "0", 17, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	input <- testReport(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var doc struct {
		WindowSeconds float64 `json:"window_seconds"`
		Rates         []aggregator.Entry
	}
	require.NoError(t, conn.ReadJSON(&doc))
	assert.Equal(t, 600.0, doc.WindowSeconds)
	assert.Len(t, doc.Rates, 4)
}
