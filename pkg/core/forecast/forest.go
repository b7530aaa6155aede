package forecast

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"pnl_forecast/pkg/core/numeric"
)

// featureCount is the width of a forest feature row:
// lag1, lag2, lag3, lag6, lag12, rolling mean(3), time index, sin, cos.
const featureCount = 9

// RandomForestModel is a bootstrap ensemble of small regression trees over
// lag and calendar features, forecasting one step at a time.
type RandomForestModel struct {
	p Params
}

func (m *RandomForestModel) Name() string        { return NameRandomForest }
func (m *RandomForestModel) MinTrainLength() int { return m.p.ForestMinTrain }

func (m *RandomForestModel) Fit(series []float64, steps int) ([]float64, error) {
	if err := checkInput(series); err != nil {
		return nil, err
	}

	x, y := forestRows(series, m.p.SeasonLength)
	if len(y) < m.p.ForestMinRows {
		return holtWinters(series, steps, m.p), nil
	}

	forest := trainForest(x, y, m.p)

	working := make([]float64, len(series), len(series)+steps0(steps))
	copy(working, series)

	out := make([]float64, steps0(steps))
	for h := range out {
		row := featureRow(working, len(working), m.p.SeasonLength)
		pred := forest.predict(row)
		if !numeric.IsFinite(pred) || pred < 0 {
			pred = 0
		}
		working = append(working, pred)
		out[h] = pred
	}
	return out, nil
}

// forestRows builds one training row per index t >= 12 (lag12 needs a full
// year of history).
func forestRows(series []float64, period int) ([][]float64, []float64) {
	start := 12
	if period > start {
		start = period
	}
	if len(series) <= start {
		return nil, nil
	}
	x := make([][]float64, 0, len(series)-start)
	y := make([]float64, 0, len(series)-start)
	for t := start; t < len(series); t++ {
		x = append(x, featureRow(series, t, period))
		y = append(y, series[t])
	}
	return x, y
}

// featureRow computes the features used to predict series[t] from the values
// strictly before t. t may equal len(series) when forecasting.
func featureRow(series []float64, t, period int) []float64 {
	phase := 2 * math.Pi * float64(t%period) / float64(period)
	return []float64{
		series[t-1],
		series[t-2],
		series[t-3],
		series[t-6],
		series[t-12],
		stat.Mean(series[t-3:t], nil),
		float64(t),
		math.Sin(phase),
		math.Cos(phase),
	}
}

// =============================================================================
// REGRESSION TREES
// =============================================================================

// treeNode is one slot in a tree arena. Internal nodes route rows with
// row[feature] <= threshold to left, others to right; leaves carry value.
type treeNode struct {
	leaf      bool
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

type regressionTree struct {
	nodes []treeNode
}

func (t *regressionTree) predict(row []float64) float64 {
	i := 0
	for !t.nodes[i].leaf {
		n := t.nodes[i]
		if row[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].value
}

type randomForest struct {
	trees []regressionTree
}

func (f *randomForest) predict(row []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	preds := make([]float64, len(f.trees))
	for i := range f.trees {
		preds[i] = f.trees[i].predict(row)
	}
	return stat.Mean(preds, nil)
}

type treeBuilder struct {
	x          [][]float64
	y          []float64
	maxDepth   int
	minLeaf    int
	mtry       int
	thresholds int
	rng        *numeric.PRNG
	nodes      []treeNode
}

func trainForest(x [][]float64, y []float64, p Params) *randomForest {
	rng := numeric.NewPRNG(p.ForestSeed)
	mtry := int(math.Ceil(math.Sqrt(featureCount)))

	forest := &randomForest{trees: make([]regressionTree, 0, p.ForestTrees)}
	for i := 0; i < p.ForestTrees; i++ {
		sample := make([]int, len(y))
		for j := range sample {
			sample[j] = rng.Intn(len(y))
		}

		b := &treeBuilder{
			x:          x,
			y:          y,
			maxDepth:   p.ForestMaxDepth,
			minLeaf:    p.ForestMinLeaf,
			mtry:       mtry,
			thresholds: p.ForestThreshold,
			rng:        rng,
		}
		b.build(sample, 0)
		forest.trees = append(forest.trees, regressionTree{nodes: b.nodes})
	}
	return forest
}

// build grows the subtree for the rows in idx and returns its arena index.
func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{leaf: true, value: b.mean(idx)})

	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = treeNode{feature: feature, threshold: threshold, left: l, right: r}
	return id
}

func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	best := math.Inf(1)
	for _, f := range b.rng.Sample(featureCount, b.mtry) {
		for _, thr := range b.candidateThresholds(idx, f) {
			var left, right []float64
			for _, i := range idx {
				if b.x[i][f] <= thr {
					left = append(left, b.y[i])
				} else {
					right = append(right, b.y[i])
				}
			}
			if len(left) < b.minLeaf || len(right) < b.minLeaf {
				continue
			}
			sse := sumSquaredError(left) + sumSquaredError(right)
			if sse < best {
				best, feature, threshold, ok = sse, f, thr, true
			}
		}
	}
	return feature, threshold, ok
}

// candidateThresholds returns up to b.thresholds distinct empirical
// quantiles of feature f over the rows in idx.
func (b *treeBuilder) candidateThresholds(idx []int, f int) []float64 {
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = b.x[i][f]
	}
	sort.Float64s(vals)

	out := make([]float64, 0, b.thresholds)
	for q := 1; q <= b.thresholds; q++ {
		v := stat.Quantile(float64(q)/float64(b.thresholds+1), stat.Empirical, vals, nil)
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

func sumSquaredError(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	mean := floats.Sum(vals) / float64(len(vals))
	var sse float64
	for _, v := range vals {
		d := v - mean
		sse += d * d
	}
	return sse
}
