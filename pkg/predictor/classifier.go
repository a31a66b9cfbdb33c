package predictor

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
)

// Fixture is an encoded (home, away) pair.
type Fixture struct {
	Home int
	Away int
}

func (f Fixture) features() []float64 {
	return []float64{float64(f.Home), float64(f.Away)}
}

// classes are ordered by FTR code so that probability ties resolve to A, then D, then H.
var classes = footballdata.Results

func classIndex(r footballdata.Result) int {
	for i, c := range classes {
		if c == r {
			return i
		}
	}
	return -1
}

// OutcomeClassifier predicts the full-time result of a fixture with a random forest.
type OutcomeClassifier struct {
	forest *RandomForest
}

func NewOutcomeClassifier(opts ForestOptions) *OutcomeClassifier {
	return &OutcomeClassifier{forest: NewRandomForest(opts)}
}

func (c *OutcomeClassifier) Fit(X []Fixture, y []footballdata.Result) error {
	if len(X) != len(y) {
		return fmt.Errorf("have %d fixtures but %d results", len(X), len(y))
	}
	features := make([][]float64, len(X))
	labels := make([]int, len(y))
	for i := range X {
		features[i] = X[i].features()
		labels[i] = classIndex(y[i])
		if labels[i] < 0 {
			return fmt.Errorf("fixture %d has no result", i)
		}
	}
	return c.forest.Fit(features, labels, len(classes))
}

func (c *OutcomeClassifier) Predict(x Fixture) footballdata.Result {
	return classes[c.forest.Predict(x.features())]
}

func (c *OutcomeClassifier) PredictProba(x Fixture) map[footballdata.Result]float64 {
	p := c.forest.PredictProba(x.features())
	out := make(map[footballdata.Result]float64, len(classes))
	for i, r := range classes {
		out[r] = p[i]
	}
	return out
}

// Evaluate returns the fraction of fixtures whose result is predicted exactly, 0 for no fixtures.
func (c *OutcomeClassifier) Evaluate(X []Fixture, y []footballdata.Result) float64 {
	if len(X) == 0 {
		return 0
	}
	hits := 0
	for i := range X {
		if c.Predict(X[i]) == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(X))
}

// EvaluationMode selects which rows the reported accuracy is measured on.
type EvaluationMode string

const (
	// Resubstitution scores the model on the rows it was trained on.
	Resubstitution EvaluationMode = "resubstitution"
	// Holdout trains on a stratified share of the rows and scores on the rest.
	Holdout EvaluationMode = "holdout"

	DefaultTestFraction = 0.2
)

func ParseEvaluationMode(s string) (EvaluationMode, error) {
	switch EvaluationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Holdout:
		return Holdout, nil
	case Resubstitution:
		return Resubstitution, nil
	}
	return "", fmt.Errorf("unknown evaluation mode %q (want %s or %s)", s, Holdout, Resubstitution)
}

// stratifiedSplit divides row indices into train and test sets, keeping each result's share of the
// test set proportional to its share of all rows. ok is false when either side would be empty.
func stratifiedSplit(y []footballdata.Result, testFraction float64, seed int64) (train, test []int, ok bool) {
	n := len(y)
	nTest := int(math.Ceil(testFraction*float64(n) - 1e-9))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, false
	}

	byClass := make(map[footballdata.Result][]int)
	for i, r := range y {
		byClass[r] = append(byClass[r], i)
	}

	type quota struct {
		class     footballdata.Result
		take      int
		remainder float64
	}
	quotas := make([]quota, 0, len(classes))
	allocated := 0
	for _, r := range classes {
		members := len(byClass[r])
		if members == 0 {
			continue
		}
		exact := float64(members) * float64(nTest) / float64(n)
		take := int(math.Floor(exact))
		quotas = append(quotas, quota{class: r, take: take, remainder: exact - float64(take)})
		allocated += take
	}
	sort.SliceStable(quotas, func(i, j int) bool { return quotas[i].remainder > quotas[j].remainder })
	for i := 0; allocated < nTest; i = (i + 1) % len(quotas) {
		if quotas[i].take < len(byClass[quotas[i].class]) {
			quotas[i].take++
			allocated++
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, q := range quotas {
		members := append([]int(nil), byClass[q.class]...)
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		test = append(test, members[:q.take]...)
		train = append(train, members[q.take:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, true
}
