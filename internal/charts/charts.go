// Package charts renders model statistics as interactive go-echarts pages.
package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/richard-senior/matchpredict/pkg/predictor"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Width  string
	Height string
	Theme  string
	Colors []string
}

func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "720px",
		Height: "400px",
		Theme:  "light",
		Colors: []string{"#3BA272", "#FAC858", "#EE6666"},
	}
}

// displayOrder is home, draw, away: the order people read a fixture in.
var displayOrder = []footballdata.Result{footballdata.Home, footballdata.Draw, footballdata.Away}

func labels() []string {
	out := make([]string, len(displayOrder))
	for i, r := range displayOrder {
		out[i] = r.String()
	}
	return out
}

func newBar(config ChartConfig, title, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithColorsOpts(opts.Colors(config.Colors)),
	)
	return bar
}

// DistributionChart shows how many training matches ended in each result.
func DistributionChart(report predictor.Report, config ChartConfig) *charts.Bar {
	bar := newBar(config, "Training results",
		fmt.Sprintf("%d matches, accuracy %s (%s)", report.TrainSamples, report.AccuracyPercent(), report.Mode))

	data := make([]opts.BarData, len(displayOrder))
	for i, r := range displayOrder {
		data[i] = opts.BarData{Value: report.Distribution[r]}
	}
	bar.SetXAxis(labels()).
		AddSeries("Matches", data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// ProbabilityChart shows the forest's vote share for each result of one fixture.
func ProbabilityChart(resp predictor.Response, config ChartConfig) *charts.Bar {
	bar := newBar(config, fmt.Sprintf("%s v %s", resp.HomeTeam, resp.AwayTeam), resp.Message())

	data := make([]opts.BarData, len(displayOrder))
	for i, r := range displayOrder {
		data[i] = opts.BarData{Value: math.Round(resp.Probabilities[r]*1000) / 1000}
	}
	bar.SetXAxis(labels()).
		AddSeries("Probability", data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

// RenderStats writes an HTML page with the distribution chart and, when fixture is not nil,
// the probabilities of that fixture.
func RenderStats(w io.Writer, report predictor.Report, fixture *predictor.Response, config ChartConfig) error {
	page := components.NewPage()
	page.PageTitle = "Match predictor statistics"
	page.AddCharts(DistributionChart(report, config))
	if fixture != nil {
		page.AddCharts(ProbabilityChart(*fixture, config))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	return nil
}
