package charts

import (
	"bytes"
	"testing"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/richard-senior/matchpredict/pkg/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report() predictor.Report {
	return predictor.Report{
		Mode:         predictor.Holdout,
		Requested:    predictor.Holdout,
		Accuracy:     0.5,
		TrainSamples: 10,
		Distribution: map[footballdata.Result]int{footballdata.Home: 5, footballdata.Draw: 3, footballdata.Away: 2},
	}
}

func TestDistributionChart(t *testing.T) {
	bar := DistributionChart(report(), DefaultChartConfig())
	require.Len(t, bar.MultiSeries, 1)
	assert.Equal(t, "Matches", bar.MultiSeries[0].Name)
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderStats(&buf, report(), nil, DefaultChartConfig()))
	assert.Contains(t, buf.String(), "Training results")
	assert.NotContains(t, buf.String(), "Arsenal v Chelsea")

	buf.Reset()
	last := &predictor.Response{
		Outcome:  predictor.HomeWin,
		Team:     "Arsenal",
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		Probabilities: map[footballdata.Result]float64{
			footballdata.Home: 0.6, footballdata.Draw: 0.25, footballdata.Away: 0.15,
		},
	}
	require.NoError(t, RenderStats(&buf, report(), last, DefaultChartConfig()))
	assert.Contains(t, buf.String(), "Arsenal v Chelsea")
	assert.Contains(t, buf.String(), "Predicted Winner: Arsenal (Home Win)")
}
