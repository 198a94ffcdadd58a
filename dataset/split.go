package dataset

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/tabforge/gbtune/pkg/errors"
)

// Split is a disjoint partition of row indices into a training set and a
// held-out (or per-fold validation) set.
type Split struct {
	Train []int
	Test  []int
}

// TrainTest partitions the dataset rows into train and held-out sets.
// The permutation is deterministic for a given seed; the first
// round(proportion*n) shuffled indices become the training set.
func TrainTest(d *Dataset, proportion float64, seed uint64) (Split, error) {
	if proportion <= 0 || proportion >= 1 {
		return Split{}, errors.NewValidationError("proportion", "must be in (0, 1)", proportion)
	}

	n := d.NumRows()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	nTrain := int(math.Round(proportion * float64(n)))
	if nTrain == 0 {
		nTrain = 1
	}
	if nTrain == n {
		nTrain = n - 1
	}

	train := make([]int, nTrain)
	copy(train, indices[:nTrain])
	test := make([]int, n-nTrain)
	copy(test, indices[nTrain:])
	return Split{Train: train, Test: test}, nil
}

// KFold splits the given row indices into k cross-validation folds.
// Every returned Split's Test set is one fold; its Train set is the union
// of the remaining folds. Test sets are pairwise disjoint and together
// cover exactly the input indices.
func KFold(indices []int, k int, seed uint64) ([]Split, error) {
	if err := validateK(k, len(indices)); err != nil {
		return nil, err
	}

	shuffled := make([]int, len(indices))
	copy(shuffled, indices)
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	folds := chunkIndices(shuffled, k)
	return assembleSplits(folds), nil
}

// StratifiedKFold splits the given row indices into k folds while keeping
// the per-fold distribution of the label column close to the global one.
// Indices are grouped by label value, each group is shuffled and chunked
// into k pieces, and fold i is the union of the i-th chunk of every group.
// Group order follows first appearance in the index slice so that the
// result depends only on (indices, labels, k, seed).
func StratifiedKFold(d *Dataset, indices []int, labelColumn string, k int, seed uint64) ([]Split, error) {
	if err := validateK(k, len(indices)); err != nil {
		return nil, err
	}
	col, err := d.Column(labelColumn)
	if err != nil {
		return nil, err
	}

	labelOf := func(i int) string {
		if col.Kind == Categorical {
			return col.Strings[i]
		}
		return formatLabel(col.Floats[i])
	}

	// Group by label, first-seen order.
	var order []string
	groups := make(map[string][]int)
	for _, idx := range indices {
		lab := labelOf(idx)
		if _, ok := groups[lab]; !ok {
			order = append(order, lab)
		}
		groups[lab] = append(groups[lab], idx)
	}

	r := rand.New(rand.NewPCG(seed, seed))
	folds := make([][]int, k)
	for _, lab := range order {
		group := groups[lab]
		r.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		for fold, chunk := range chunkIndices(group, k) {
			folds[fold] = append(folds[fold], chunk...)
		}
	}

	return assembleSplits(folds), nil
}

func validateK(k, n int) error {
	if k < 2 {
		return errors.NewValidationError("folds", "must be at least 2", k)
	}
	if k > n {
		return errors.NewValidationError("folds", "must not exceed the number of rows", k)
	}
	return nil
}

// chunkIndices divides indices into k contiguous chunks whose sizes differ
// by at most one, larger chunks first.
func chunkIndices(indices []int, k int) [][]int {
	n := len(indices)
	base := n / k
	remainder := n % k

	chunks := make([][]int, k)
	at := 0
	for i := 0; i < k; i++ {
		size := base
		if i < remainder {
			size++
		}
		chunks[i] = indices[at : at+size]
		at += size
	}
	return chunks
}

// assembleSplits builds one Split per fold: Test is the fold itself,
// Train is every other fold.
func assembleSplits(folds [][]int) []Split {
	k := len(folds)
	splits := make([]Split, k)
	for i := 0; i < k; i++ {
		test := make([]int, len(folds[i]))
		copy(test, folds[i])
		sort.Ints(test)

		var train []int
		for j := 0; j < k; j++ {
			if j != i {
				train = append(train, folds[j]...)
			}
		}
		sort.Ints(train)
		splits[i] = Split{Train: train, Test: test}
	}
	return splits
}

func formatLabel(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	// Binary/integer labels render without a fractional part.
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
