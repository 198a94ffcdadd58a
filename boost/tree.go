package boost

// Node is a single tree node stored in a flat slice: internal nodes carry
// a split, leaves carry the shrunken output value.
type Node struct {
	Feature   int     // split feature index, -1 for leaves
	Threshold float64 // values <= Threshold go left
	Left      int     // child indices into Tree.Nodes, -1 for leaves
	Right     int
	Leaf      bool
	Value     float64 // leaf output, learning rate already applied
	Gain      float64 // split gain, 0 for leaves

	// Coverage statistics captured at build time, used by the additive
	// attribution decomposition.
	Count int     // training rows routed through this node
	Mean  float64 // coverage-weighted mean output of the subtree
}

// Tree is one boosting round's regression tree.
type Tree struct {
	Nodes []Node
}

// Predict routes a feature vector to a leaf and returns its value.
// The tree contributes nothing if it is empty.
func (t *Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	at := 0
	for {
		node := &t.Nodes[at]
		if node.Leaf {
			return node.Value
		}
		// NaN compares false and falls through to the right child.
		if x[node.Feature] <= node.Threshold {
			at = node.Left
		} else {
			at = node.Right
		}
	}
}

// annotateMeans fills Node.Mean bottom-up: a leaf's mean is its value, an
// internal node's mean is the count-weighted mean of its children. The
// root mean is the tree's expected output over the training distribution.
func (t *Tree) annotateMeans() {
	if len(t.Nodes) == 0 {
		return
	}
	t.meanOf(0)
}

func (t *Tree) meanOf(idx int) float64 {
	node := &t.Nodes[idx]
	if node.Leaf {
		node.Mean = node.Value
		return node.Value
	}
	leftMean := t.meanOf(node.Left)
	rightMean := t.meanOf(node.Right)
	leftCount := float64(t.Nodes[node.Left].Count)
	rightCount := float64(t.Nodes[node.Right].Count)
	total := leftCount + rightCount
	if total == 0 {
		node.Mean = 0
		return 0
	}
	node.Mean = (leftMean*leftCount + rightMean*rightCount) / total
	return node.Mean
}
