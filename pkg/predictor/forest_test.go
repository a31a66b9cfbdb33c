package predictor

import (
	"testing"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(n int) ([][]float64, []int) {
	var X [][]float64
	var y []int
	for h := 0; h < n; h++ {
		for a := 0; a < n; a++ {
			X = append(X, []float64{float64(h), float64(a)})
			label := 0
			if h < n/2 {
				label = 2
			}
			y = append(y, label)
		}
	}
	return X, y
}

func TestForestFitValidation(t *testing.T) {
	f := NewRandomForest(ForestOptions{Trees: 3})
	assert.Error(t, f.Fit(nil, nil, 3))
	assert.Error(t, f.Fit([][]float64{{1, 2}}, []int{0, 1}, 3))
	assert.Error(t, f.Fit([][]float64{{1, 2}, {1}}, []int{0, 1}, 3))
	assert.Error(t, f.Fit([][]float64{{1, 2}}, []int{3}, 3))
	assert.False(t, f.Fitted())
}

func TestForestLearnsSeparableData(t *testing.T) {
	X, y := grid(8)
	f := NewRandomForest(ForestOptions{Trees: 200, Seed: 7})
	require.NoError(t, f.Fit(X, y, 3))
	assert.Equal(t, 200, f.Trees())

	for i := range X {
		assert.Equal(t, y[i], f.Predict(X[i]), "sample %v", X[i])
	}
	p := f.PredictProba([]float64{0, 7})
	assert.Equal(t, 0.0, p[1], "class 1 never occurs")
	assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-9)
}

func TestForestIndependentOfWorkers(t *testing.T) {
	X, y := grid(6)
	single := NewRandomForest(ForestOptions{Trees: 30, Seed: DefaultSeed, Workers: 1})
	many := NewRandomForest(ForestOptions{Trees: 30, Seed: DefaultSeed, Workers: 8})
	require.NoError(t, single.Fit(X, y, 3))
	require.NoError(t, many.Fit(X, y, 3))

	for h := -1.0; h <= 6; h += 0.5 {
		for a := -1.0; a <= 6; a += 0.5 {
			x := []float64{h, a}
			assert.Equal(t, single.PredictProba(x), many.PredictProba(x))
		}
	}
}

func TestForestConstantFeaturesMakeLeaf(t *testing.T) {
	X := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	y := []int{0, 2, 2}
	f := NewRandomForest(ForestOptions{Trees: 1, Seed: 1})
	require.NoError(t, f.Fit(X, y, 3))
	p := f.PredictProba([]float64{1, 1})
	assert.InDelta(t, 1.0, p[0]+p[2], 1e-9)
	assert.Equal(t, 0.0, p[1])
}

func TestArgmaxPrefersLowestIndex(t *testing.T) {
	assert.Equal(t, 0, argmax([]float64{0.5, 0, 0.5}))
	assert.Equal(t, 1, argmax([]float64{0.25, 0.5, 0.25}))
	assert.Equal(t, footballdata.Away, classes[argmax([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3})])
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, gini([]int{4, 0, 0}, 4))
	assert.InDelta(t, 0.5, gini([]int{2, 0, 2}, 4), 1e-12)
	assert.Equal(t, 0.0, gini([]int{0, 0, 0}, 0))
}

func TestStratifiedSplit(t *testing.T) {
	var y []footballdata.Result
	for i := 0; i < 50; i++ {
		y = append(y, footballdata.Home)
	}
	for i := 0; i < 30; i++ {
		y = append(y, footballdata.Away)
	}
	for i := 0; i < 20; i++ {
		y = append(y, footballdata.Draw)
	}

	train, test, ok := stratifiedSplit(y, 0.2, 42)
	require.True(t, ok)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	counts := map[footballdata.Result]int{}
	for _, i := range test {
		counts[y[i]]++
	}
	assert.Equal(t, 10, counts[footballdata.Home])
	assert.Equal(t, 6, counts[footballdata.Away])
	assert.Equal(t, 4, counts[footballdata.Draw])

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	train2, test2, _ := stratifiedSplit(y, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestStratifiedSplitTooSmall(t *testing.T) {
	_, _, ok := stratifiedSplit([]footballdata.Result{footballdata.Home}, 0.2, 42)
	assert.False(t, ok)

	train, test, ok := stratifiedSplit([]footballdata.Result{footballdata.Home, footballdata.Away}, 0.2, 42)
	require.True(t, ok)
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)
}

func TestParseEvaluationMode(t *testing.T) {
	m, err := ParseEvaluationMode("")
	require.NoError(t, err)
	assert.Equal(t, Holdout, m)

	m, err = ParseEvaluationMode("Resubstitution")
	require.NoError(t, err)
	assert.Equal(t, Resubstitution, m)

	_, err = ParseEvaluationMode("cross-validation")
	assert.Error(t, err)
}
