package predictor

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
)

const (
	DefaultTrees = 200
	DefaultSeed  = 42
)

// ForestOptions controls how a RandomForest is grown.
// Zero values select the defaults: sqrt(features) candidates per split, unlimited depth,
// a minimum of two samples to split and one worker per CPU.
type ForestOptions struct {
	Trees           int
	Seed            int64
	MaxFeatures     int
	MinSamplesSplit int
	MaxDepth        int
	Workers         int
}

func DefaultForestOptions() ForestOptions {
	return ForestOptions{Trees: DefaultTrees, Seed: DefaultSeed}
}

type node struct {
	feature     int
	threshold   float64
	left, right *node
	proba       []float64
}

// RandomForest is a bagged ensemble of CART classification trees split on Gini impurity.
// Predictions average the class distributions of the leaves reached in every tree.
type RandomForest struct {
	opts      ForestOptions
	nClasses  int
	nFeatures int
	trees     []*node
}

func NewRandomForest(opts ForestOptions) *RandomForest {
	if opts.Trees <= 0 {
		opts.Trees = DefaultTrees
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	return &RandomForest{opts: opts}
}

// Fit grows the forest on samples X with labels y in [0, nClasses).
// Every tree draws its bootstrap sample and feature order from its own seed, and the seeds are
// taken from a generator seeded with opts.Seed before any tree is built, so the fitted forest does
// not depend on how trees are scheduled across workers.
func (f *RandomForest) Fit(X [][]float64, y []int, nClasses int) error {
	if len(X) == 0 {
		return errors.New("no training samples")
	}
	if len(X) != len(y) {
		return fmt.Errorf("have %d samples but %d labels", len(X), len(y))
	}
	if nClasses < 1 {
		return fmt.Errorf("invalid class count %d", nClasses)
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return errors.New("samples have no features")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("sample %d has %d features, expected %d", i, len(row), nFeatures)
		}
		if y[i] < 0 || y[i] >= nClasses {
			return fmt.Errorf("sample %d has label %d outside [0, %d)", i, y[i], nClasses)
		}
	}

	maxFeatures := f.opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	maxFeatures = min(max(maxFeatures, 1), nFeatures)

	master := rand.New(rand.NewSource(f.opts.Seed))
	seeds := make([]int64, f.opts.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := f.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(seeds))

	trees := make([]*node, len(seeds))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				b := &treeBuilder{
					X:           X,
					y:           y,
					nClasses:    nClasses,
					maxFeatures: maxFeatures,
					minSplit:    f.opts.MinSamplesSplit,
					maxDepth:    f.opts.MaxDepth,
					rng:         rand.New(rand.NewSource(seeds[i])),
				}
				trees[i] = b.grow(b.bootstrap(), 0)
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	f.nClasses = nClasses
	f.nFeatures = nFeatures
	f.trees = trees
	return nil
}

func (f *RandomForest) Fitted() bool { return len(f.trees) > 0 }

func (f *RandomForest) Trees() int { return len(f.trees) }

// PredictProba returns the mean class distribution over all trees.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.nClasses)
	if !f.Fitted() {
		return out
	}
	for _, t := range f.trees {
		n := t
		for n.left != nil {
			if x[n.feature] <= n.threshold {
				n = n.left
			} else {
				n = n.right
			}
		}
		for c, p := range n.proba {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.trees))
	}
	return out
}

// Predict returns the class with the highest mean probability, the lowest class index on ties.
func (f *RandomForest) Predict(x []float64) int {
	return argmax(f.PredictProba(x))
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	nClasses    int
	maxFeatures int
	minSplit    int
	maxDepth    int
	rng         *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

func (b *treeBuilder) bootstrap() []int {
	idx := make([]int, len(b.y))
	for i := range idx {
		idx[i] = b.rng.Intn(len(b.y))
	}
	return idx
}

func (b *treeBuilder) counts(idx []int) []int {
	c := make([]int, b.nClasses)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func (b *treeBuilder) grow(idx []int, depth int) *node {
	counts := b.counts(idx)
	if pure(counts) || len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return leaf(counts, len(idx))
	}
	s, ok := b.bestSplit(idx)
	if !ok {
		return leaf(counts, len(idx))
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   s.feature,
		threshold: s.threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit examines features in random order until maxFeatures of them have offered a split.
// Features that are constant within the node do not count, so a node only becomes a leaf here
// when every feature is constant.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	best := split{impurity: math.Inf(1)}
	visited := 0
	for _, f := range b.rng.Perm(len(b.X[0])) {
		if visited >= b.maxFeatures {
			break
		}
		s, ok := b.splitOn(idx, f)
		if !ok {
			continue
		}
		visited++
		if s.impurity < best.impurity {
			best = s
		}
	}
	return best, visited > 0
}

// splitOn finds the threshold on feature f minimising the weighted Gini impurity of the children.
// Thresholds sit midway between consecutive distinct values.
func (b *treeBuilder) splitOn(idx []int, f int) (split, bool) {
	sorted := make([]int, len(idx))
	copy(sorted, idx)
	sort.SliceStable(sorted, func(i, j int) bool {
		return b.X[sorted[i]][f] < b.X[sorted[j]][f]
	})
	n := len(sorted)
	if b.X[sorted[0]][f] == b.X[sorted[n-1]][f] {
		return split{}, false
	}

	right := b.counts(sorted)
	left := make([]int, b.nClasses)
	best := split{feature: f, impurity: math.Inf(1)}
	for i := 0; i < n-1; i++ {
		c := b.y[sorted[i]]
		left[c]++
		right[c]--
		v, next := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
		if v == next {
			continue
		}
		nl, nr := i+1, n-i-1
		imp := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
		if imp < best.impurity {
			best.impurity = imp
			best.threshold = v + (next-v)/2
		}
	}
	return best, true
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

func pure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func leaf(counts []int, n int) *node {
	proba := make([]float64, len(counts))
	for c, k := range counts {
		proba[c] = float64(k) / float64(n)
	}
	return &node{proba: proba}
}
