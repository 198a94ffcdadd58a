package boost

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/tabforge/gbtune/pkg/errors"
)

// Trainer grows a boosted-tree ensemble round by round.
type Trainer struct {
	params Params
	obj    objectiveFunction
	rng    *rand.Rand

	x        *mat.Dense
	y        []float64
	preds    []float64
	grads    []float64
	hessians []float64
}

// NewTrainer validates the hyperparameters and resolves the objective.
func NewTrainer(params Params) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	obj, err := objectiveFor(params.Objective)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		params: params,
		obj:    obj,
		rng:    rand.New(rand.NewPCG(params.Seed, params.Seed)),
	}, nil
}

// Fit trains the ensemble on a feature matrix and target vector and
// returns the fitted model. X is read-only; a fixed seed reproduces the
// exact same ensemble.
func (t *Trainer) Fit(x *mat.Dense, y []float64) (*Model, error) {
	n, m := x.Dims()
	if n == 0 || m == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("Trainer.Fit", n, len(y), 0)
	}
	if t.params.Objective == ObjectiveBinary {
		for i, v := range y {
			if v != 0 && v != 1 {
				return nil, errors.NewValueError("Trainer.Fit",
					"binary objective requires 0/1 targets, got other at row "+strconv.Itoa(i))
			}
		}
	}

	t.x = x
	t.y = y
	initScore := t.obj.InitScore(y)
	t.preds = make([]float64, n)
	for i := range t.preds {
		t.preds[i] = initScore
	}
	t.grads = make([]float64, n)
	t.hessians = make([]float64, n)

	trees := make([]Tree, 0, t.params.TreeCount)
	for iter := 0; iter < t.params.TreeCount; iter++ {
		for i := 0; i < n; i++ {
			t.grads[i] = t.obj.Gradient(t.preds[i], y[i])
			t.hessians[i] = t.obj.Hessian(t.preds[i], y[i])
		}

		rows := t.sampleRows(n)
		tree := t.buildTree(rows)
		tree.annotateMeans()
		trees = append(trees, tree)

		for i := 0; i < n; i++ {
			t.preds[i] += tree.Predict(x.RawRowView(i))
		}
	}

	return &Model{
		Trees:       trees,
		InitScore:   initScore,
		Objective:   t.params.Objective,
		NumFeatures: m,
		Params:      t.params,
	}, nil
}

// sampleRows draws the per-round row subset without replacement.
func (t *Trainer) sampleRows(n int) []int {
	if t.params.SubsampleFraction >= 1 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	size := int(math.Ceil(t.params.SubsampleFraction * float64(n)))
	if size < 1 {
		size = 1
	}
	perm := t.rng.Perm(n)
	rows := perm[:size]
	sort.Ints(rows)
	return rows
}

// sampleFeatures draws the per-split feature subset.
func (t *Trainer) sampleFeatures(m int) []int {
	if t.params.FeatureFraction >= 1 {
		features := make([]int, m)
		for i := range features {
			features[i] = i
		}
		return features
	}
	size := int(math.Ceil(t.params.FeatureFraction * float64(m)))
	if size < 1 {
		size = 1
	}
	perm := t.rng.Perm(m)
	features := perm[:size]
	sort.Ints(features)
	return features
}

func (t *Trainer) buildTree(rows []int) Tree {
	tree := Tree{}
	t.buildNode(&tree, rows, 1)
	return tree
}

// buildNode appends the node for the given rows and returns its index.
func (t *Trainer) buildNode(tree *Tree, rows []int, depth int) int {
	var sumGrad, sumHess float64
	for _, i := range rows {
		sumGrad += t.grads[i]
		sumHess += t.hessians[i]
	}

	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{Feature: -1, Left: -1, Right: -1, Count: len(rows)})

	makeLeaf := func() int {
		node := &tree.Nodes[idx]
		node.Leaf = true
		node.Value = t.leafValue(sumGrad, sumHess)
		return idx
	}

	if depth > t.params.MaxDepth || len(rows) < 2*t.params.MinLeafSamples {
		return makeLeaf()
	}

	split := t.findBestSplit(rows, sumGrad, sumHess)
	if !split.valid {
		return makeLeaf()
	}

	left, right := partitionRows(t.x, rows, split.feature, split.threshold)
	leftIdx := t.buildNode(tree, left, depth+1)
	rightIdx := t.buildNode(tree, right, depth+1)

	node := &tree.Nodes[idx]
	node.Feature = split.feature
	node.Threshold = split.threshold
	node.Gain = split.gain
	node.Left = leftIdx
	node.Right = rightIdx
	return idx
}

// leafValue is the regularized Newton step with shrinkage folded in.
func (t *Trainer) leafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + t.params.Lambda
	if denom <= 0 {
		return 0
	}
	return -sumGrad / denom * t.params.LearningRate
}

type splitInfo struct {
	valid     bool
	feature   int
	threshold float64
	gain      float64
}

// findBestSplit runs exact greedy search over the sampled features.
func (t *Trainer) findBestSplit(rows []int, totalGrad, totalHess float64) splitInfo {
	_, m := t.x.Dims()
	best := splitInfo{}
	minGain := t.params.MinSplitGain
	if minGain < 1e-12 {
		minGain = 1e-12
	}

	for _, feature := range t.sampleFeatures(m) {
		if s := t.bestSplitForFeature(rows, feature, totalGrad, totalHess); s.valid {
			if !best.valid || s.gain > best.gain {
				best = s
			}
		}
	}
	if best.valid && best.gain < minGain {
		return splitInfo{}
	}
	return best
}

func (t *Trainer) bestSplitForFeature(rows []int, feature int, totalGrad, totalHess float64) splitInfo {
	type entry struct {
		value float64
		grad  float64
		hess  float64
	}
	entries := make([]entry, len(rows))
	for i, row := range rows {
		entries[i] = entry{
			value: t.x.At(row, feature),
			grad:  t.grads[row],
			hess:  t.hessians[row],
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value < entries[j].value })

	lambda := t.params.Lambda
	parentScore := totalGrad * totalGrad / (totalHess + lambda)

	best := splitInfo{feature: feature}
	var leftGrad, leftHess float64
	for i := 0; i < len(entries)-1; i++ {
		leftGrad += entries[i].grad
		leftHess += entries[i].hess

		// Splits only between distinct values.
		if entries[i].value == entries[i+1].value {
			continue
		}
		leftCount := i + 1
		rightCount := len(entries) - leftCount
		if leftCount < t.params.MinLeafSamples || rightCount < t.params.MinLeafSamples {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess
		gain := 0.5 * (leftGrad*leftGrad/(leftHess+lambda) +
			rightGrad*rightGrad/(rightHess+lambda) -
			parentScore)
		if !best.valid || gain > best.gain {
			best.valid = true
			best.gain = gain
			best.threshold = (entries[i].value + entries[i+1].value) / 2
		}
	}
	return best
}

func partitionRows(x *mat.Dense, rows []int, feature int, threshold float64) (left, right []int) {
	for _, row := range rows {
		if x.At(row, feature) <= threshold {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return left, right
}
