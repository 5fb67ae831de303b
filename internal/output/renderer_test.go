package output

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pothiers/cadence/internal/aggregator"
	"github.com/pothiers/cadence/internal/model"
	"github.com/pothiers/cadence/internal/report"
	"github.com/pothiers/cadence/internal/series"
)

func testReport(t *testing.T) *report.Report {
	t.Helper()
	t0 := time.Date(2014, 1, 1, 10, 0, 0, 0, time.UTC)
	tl, err := series.Build(map[string]model.Record{
		"/a": {Key: "/a", Category: "x", Timestamp: t0, Volume: 2},
		"/b": {Key: "/b", Category: "x", Timestamp: t0.Add(10 * time.Minute), Volume: 4},
	})
	require.NoError(t, err)
	table, err := aggregator.Aggregate(context.Background(), tl, 10*time.Minute)
	require.NoError(t, err)

	q := model.Quality{Records: 3, MissingTimestamp: 1, UnknownFields: []string{"OBJECT"}}
	return report.New(q, table)
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewJSONRenderer(&buf)

	require.NoError(t, renderer.Render(testReport(t)))

	var got struct {
		WindowSeconds float64 `json:"window_seconds"`
		Categories    []string
		Quality       model.Quality
		Stats         map[string]aggregator.CategoryStats
		Rates         []struct {
			At       time.Time
			Category string
			Rate     float64
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got), buf.String())

	assert.Equal(t, 600.0, got.WindowSeconds)
	assert.Equal(t, []string{"x"}, got.Categories)
	assert.Equal(t, 1, got.Quality.MissingTimestamp)
	require.Len(t, got.Rates, 1)
	assert.Equal(t, "x", got.Rates[0].Category)
	assert.InDelta(t, 0.01, got.Rates[0].Rate, 1e-12)
	assert.InDelta(t, 0.01, got.Stats["x"].P95, 1e-12)
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextRenderer(&buf, true).Render(testReport(t)))

	out := buf.String()
	assert.Contains(t, out, "Could not calculate 1/3 (33.3%) collection time-stamps")
	assert.Contains(t, out, "OBJECT")
	assert.Contains(t, out, "2014-01-01")
	assert.Contains(t, out, "0.010000")
}

func TestTextRendererWithoutTable(t *testing.T) {
	var buf bytes.Buffer
	rep := report.New(model.Quality{Records: 2, MissingSize: 2}, nil)
	require.NoError(t, NewTextRenderer(&buf, false).Render(rep))

	assert.NotContains(t, buf.String(), "Moving average")
	assert.Contains(t, buf.String(), "missing size")
}

func TestNewPicksFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &JSONRenderer{}, New("JSON", &buf, false))
	assert.IsType(t, &TextRenderer{}, New("text", &buf, false))
}
