// Package report renders a post-run QC page from the persisted read
// summaries: read-length and mean-quality histograms, split out by simplex
// and duplex reads.
package report

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/strandline-data/duplex.report/internal/db"
)

const (
	lengthBucketWidth = 250
	qscoreBucketWidth = 1.0
)

// histogram buckets values at a fixed width starting from zero.
type histogram struct {
	width   float64
	buckets []int
}

func newHistogram(width float64) *histogram {
	return &histogram{width: width}
}

func (h *histogram) add(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	idx := int(v / h.width)
	for len(h.buckets) <= idx {
		h.buckets = append(h.buckets, 0)
	}
	h.buckets[idx]++
}

func (h *histogram) labels() []string {
	out := make([]string, len(h.buckets))
	for i := range h.buckets {
		out[i] = fmt.Sprintf("%g", float64(i)*h.width)
	}
	return out
}

func (h *histogram) series() []opts.BarData {
	out := make([]opts.BarData, len(h.buckets))
	for i, n := range h.buckets {
		out[i] = opts.BarData{Value: n}
	}
	return out
}

// WriteHTML renders the QC page for one run to path.
func WriteHTML(database *db.DB, runID, path string) error {
	summaries, err := database.SummariesForRun(runID)
	if err != nil {
		return err
	}
	simplexCount, duplexCount, err := database.RunCounts(runID)
	if err != nil {
		return err
	}

	simplexLen := newHistogram(lengthBucketWidth)
	duplexLen := newHistogram(lengthBucketWidth)
	simplexQ := newHistogram(qscoreBucketWidth)
	duplexQ := newHistogram(qscoreBucketWidth)
	for _, s := range summaries {
		if s.IsDuplex {
			duplexLen.add(float64(s.SeqLength))
			duplexQ.add(s.MeanQScore)
		} else {
			simplexLen.add(float64(s.SeqLength))
			simplexQ.add(s.MeanQScore)
		}
	}

	subtitle := fmt.Sprintf("run=%s simplex=%d duplex=%d", runID, simplexCount, duplexCount)

	page := components.NewPage()
	page.AddCharts(
		lengthChart(subtitle, simplexLen, duplexLen),
		qscoreChart(subtitle, simplexQ, duplexQ),
	)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func lengthChart(subtitle string, simplex, duplex *histogram) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Read length", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "length (bases)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reads"}),
	)
	labels := simplex.labels()
	if len(duplex.labels()) > len(labels) {
		labels = duplex.labels()
	}
	bar.SetXAxis(labels).
		AddSeries("simplex", simplex.series()).
		AddSeries("duplex", duplex.series())
	return bar
}

func qscoreChart(subtitle string, simplex, duplex *histogram) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Mean read quality", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "mean qscore"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "reads"}),
	)
	labels := simplex.labels()
	if len(duplex.labels()) > len(labels) {
		labels = duplex.labels()
	}
	bar.SetXAxis(labels).
		AddSeries("simplex", simplex.series()).
		AddSeries("duplex", duplex.series())
	return bar
}
