// Package chart draws the moving-average table as one line per observing
// night and category, with time of day on the x axis.
package chart

import (
	"errors"
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// Table is the part of a moving-average table the chart needs.
type Table interface {
	Series(category string) []float64
}

// Input describes what to draw.
type Input struct {
	Table      Table
	Categories []string
	Times      []time.Time
	Window     time.Duration
	// StartOfDayHour is the hour at which a new observing night begins.
	StartOfDayHour int
	Width, Height  int
}

// Line is one drawn series: the rates of a category during one night.
type Line struct {
	Name     string
	Night    time.Time
	Category string
	X        []time.Time // folded onto a common reference night
	Y        []float64
}

var ErrNothingToDraw = errors.New("no rates to draw")

// Lines folds every category's rates into per-night lines.
func Lines(in Input) []Line {
	reference := time.Date(2000, 1, 1, in.StartOfDayHour, 0, 0, 0, time.UTC)
	var lines []Line
	for _, c := range in.Categories {
		rates := in.Table.Series(c)
		var cur *Line
		for i, at := range in.Times {
			night := nightOf(at, in.StartOfDayHour)
			if cur == nil || !cur.Night.Equal(night) {
				lines = append(lines, Line{
					Name:     fmt.Sprintf("%s %s", night.Format(time.DateOnly), c),
					Night:    night,
					Category: c,
				})
				cur = &lines[len(lines)-1]
			}
			cur.X = append(cur.X, reference.Add(at.Sub(night)))
			cur.Y = append(cur.Y, rates[i])
		}
	}
	return lines
}

// nightOf returns the start of the observing night containing at.
func nightOf(at time.Time, hour int) time.Time {
	shifted := at.Add(-time.Duration(hour) * time.Hour)
	y, m, d := shifted.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, at.Location())
}

// Render writes a PNG chart of in to w.
func Render(w io.Writer, in Input) error {
	lines := Lines(in)
	if len(lines) == 0 {
		return ErrNothingToDraw
	}
	nights := make(map[time.Time]struct{})
	series := make([]gochart.Series, 0, len(lines))
	for i, l := range lines {
		nights[l.Night] = struct{}{}
		xs, ys := l.X, l.Y
		// go-chart needs two X values per series
		if len(xs) == 1 {
			xs = []time.Time{xs[0], xs[0].Add(time.Second)}
			ys = []float64{ys[0], ys[0]}
		}
		series = append(series, gochart.TimeSeries{
			Name:    l.Name,
			XValues: xs,
			YValues: ys,
			Style:   gochart.Style{StrokeColor: gochart.GetDefaultColor(i), StrokeWidth: 1.5},
		})
	}

	width, height := in.Width, in.Height
	if width == 0 {
		width = 1024
	}
	if height == 0 {
		height = 640
	}
	ch := gochart.Chart{
		Title:      fmt.Sprintf("Moving average (each of %d nights) over interval of %g minutes", len(nights), in.Window.Minutes()),
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		XAxis: gochart.XAxis{
			Name:           "Observation time of day",
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04"),
		},
		YAxis:  gochart.YAxis{Name: "MB/s (collect)"},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch.Render(gochart.PNG, w)
}
