package analysis

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrNoResults = errors.New("no results to plot")

// ReturnSummary describes the distribution of discounted returns of one results file
type ReturnSummary struct {
	Name     string
	Episodes int
	Mean     float64
	StdDev   float64
	// Box holds min, first quartile, median, third quartile and max
	Box [5]float64
}

func Summarize(name string, returns []float64) ReturnSummary {
	s := ReturnSummary{Name: name, Episodes: len(returns)}
	if len(returns) == 0 {
		return s
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.Box = [5]float64{
		floats.Min(sorted),
		stat.Quantile(0.25, stat.Empirical, sorted, nil),
		stat.Quantile(0.5, stat.Empirical, sorted, nil),
		stat.Quantile(0.75, stat.Empirical, sorted, nil),
		floats.Max(sorted),
	}
	return s
}

// SummarizeFiles loads every results file and summarizes its discounted returns
func SummarizeFiles(files []string) ([]ReturnSummary, error) {
	if len(files) == 0 {
		return nil, ErrNoResults
	}
	out := make([]ReturnSummary, 0, len(files))
	for _, f := range files {
		results, err := LoadResults(f)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		_, returns := results.DiscountedReturns()
		out = append(out, Summarize(f, returns))
	}
	return out, nil
}

// MeanBar renders a box plot of the discounted returns next to a bar chart of
// their mean and standard deviation as one html page.
func MeanBar(w io.Writer, summaries []ReturnSummary) error {
	if len(summaries) == 0 {
		return ErrNoResults
	}
	names := make([]string, len(summaries))
	boxes := make([]opts.BoxPlotData, len(summaries))
	means := make([]opts.BarData, len(summaries))
	stds := make([]opts.BarData, len(summaries))
	for i, s := range summaries {
		names[i] = s.Name
		boxes[i] = opts.BoxPlotData{Name: s.Name, Value: s.Box[:]}
		means[i] = opts.BarData{Value: s.Mean}
		stds[i] = opts.BarData{Value: s.StdDev}
	}

	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Discounted return",
		}),
	)
	box.SetXAxis(names).AddSeries("discounted return", boxes)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Mean discounted return",
		}),
	)
	bar.SetXAxis(names).
		AddSeries("mean", means).
		AddSeries("stddev", stds)

	page := components.NewPage()
	page.AddCharts(
		box,
		bar,
	)
	return page.Render(w)
}
