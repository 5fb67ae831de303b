package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pothiers/cadence/internal/aggregator"
	"github.com/pothiers/cadence/internal/report"
)

// Renderer writes a finished report to an output stream.
type Renderer interface {
	Render(rep *report.Report) error
}

// New returns the renderer for format ("text" or "json").
func New(format string, w io.Writer, rates bool) Renderer {
	if strings.EqualFold(format, "json") {
		return NewJSONRenderer(w)
	}
	return NewTextRenderer(w, rates)
}

// ---------------------------------------------------------------------------
// Text Renderer (styled terminal output)
// ---------------------------------------------------------------------------

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleLabel    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	styleOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleCategory = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Width(16)
	styleFaint    = lipgloss.NewStyle().Faint(true)
)

// TextRenderer prints the data-quality summary and per-category rates.
type TextRenderer struct {
	w     io.Writer
	rates bool
}

// NewTextRenderer returns a Renderer writing styled text to w. With rates
// set, every moving-average entry is listed as well.
func NewTextRenderer(w io.Writer, rates bool) *TextRenderer {
	return &TextRenderer{w: w, rates: rates}
}

func (r *TextRenderer) Render(rep *report.Report) error {
	var b strings.Builder
	q := rep.Quality

	b.WriteString(styleTitle.Render("Data quality") + "\n")
	row(&b, "records", fmt.Sprintf("%d", q.Records), styleOK)
	row(&b, "unparsed lines", fmt.Sprintf("%d", q.UnparsedLines), severity(q.UnparsedLines))
	row(&b, "bad date values", fmt.Sprintf("%d", q.BadDates), severity(q.BadDates))
	row(&b, "missing timestamp", ratio(q.MissingTimestamp, q.Ratio(q.MissingTimestamp)), severity(q.MissingTimestamp))
	row(&b, "missing category", ratio(q.MissingCategory, q.Ratio(q.MissingCategory)), severity(q.MissingCategory))
	row(&b, "missing size", ratio(q.MissingSize, q.Ratio(q.MissingSize)), errorIf(q.MissingSize))
	if len(q.UnknownFields) > 0 {
		row(&b, "unknown fields", strings.Join(q.UnknownFields, " "), styleFaint)
	}
	for _, k := range q.NoCategoryKeys {
		row(&b, "  no category", k, styleFaint)
	}
	b.WriteString(rep.Coverage() + "\n")

	if len(rep.Categories) > 0 {
		b.WriteString("\n" + styleTitle.Render(fmt.Sprintf("Moving average over %s (MB/s)", rep.Window)) + "\n")
		for _, c := range rep.Categories {
			st := rep.Stats[c]
			fmt.Fprintf(&b, "%s max %.4f at %s  mean %.4f  p95 %.4f\n",
				styleCategory.Render(c), st.Max, st.MaxAt.Format(time.DateTime), st.Mean, st.P95)
		}
		days := make([]string, len(rep.Days))
		for i, d := range rep.Days {
			days[i] = d.Format(time.DateOnly)
		}
		row(&b, "days", strings.Join(days, " "), styleFaint)
	}

	if r.rates {
		b.WriteString("\n")
		for _, e := range rep.Entries() {
			fmt.Fprintf(&b, "%s %s %.6f\n", e.At.Format(time.DateTime), styleCategory.Render(e.Category), e.Rate)
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func row(b *strings.Builder, label, value string, style lipgloss.Style) {
	b.WriteString(styleLabel.Render(label) + style.Render(value) + "\n")
}

func ratio(n int, r float64) string {
	return fmt.Sprintf("%d (%.1f%%)", n, 100*r)
}

func severity(n int) lipgloss.Style {
	if n > 0 {
		return styleWarn
	}
	return styleOK
}

func errorIf(n int) lipgloss.Style {
	if n > 0 {
		return styleError
	}
	return styleOK
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// Document is the JSON shape of a report.
type Document struct {
	*report.Report
	WindowSeconds float64            `json:"window_seconds"`
	Rates         []aggregator.Entry `json:"rates"`
}

// NewDocument wraps rep with its moving-average entries.
func NewDocument(rep *report.Report) Document {
	return Document{Report: rep, WindowSeconds: rep.Window.Seconds(), Rates: rep.Entries()}
}

// JSONRenderer prints each report as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(rep *report.Report) error {
	return r.enc.Encode(NewDocument(rep))
}
