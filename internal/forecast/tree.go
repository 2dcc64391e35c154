package forecast

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree. Leaves predict the mean target
// of the samples that reached them; internal nodes split on
// feature <= threshold.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

// maxSplitCandidates bounds the thresholds examined per feature, keeping
// training cost linear-ish in sample count.
const maxSplitCandidates = 32

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
}

// growTree builds a regression tree by recursive variance-reduction splits.
// importances accumulates the total variance reduction attributed to each
// feature.
func growTree(xs [][]float64, ys []float64, depth int, params treeParams, importances []float64) *treeNode {
	if len(ys) < params.minSamplesSplit || depth >= params.maxDepth || allEqual(ys) {
		return &treeNode{leaf: true, value: mean(ys)}
	}

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	parentImpurity := variance(ys) * float64(len(ys))

	for f := 0; f < len(xs[0]); f++ {
		for _, threshold := range splitCandidates(xs, f) {
			var leftYs, rightYs []float64
			for i := range xs {
				if xs[i][f] <= threshold {
					leftYs = append(leftYs, ys[i])
				} else {
					rightYs = append(rightYs, ys[i])
				}
			}
			if len(leftYs) < params.minSamplesLeaf || len(rightYs) < params.minSamplesLeaf {
				continue
			}
			gain := parentImpurity -
				variance(leftYs)*float64(len(leftYs)) -
				variance(rightYs)*float64(len(rightYs))
			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, threshold, gain
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: mean(ys)}
	}
	if importances != nil {
		importances[bestFeature] += bestGain
	}

	var leftXs, rightXs [][]float64
	var leftYs, rightYs []float64
	for i := range xs {
		if xs[i][bestFeature] <= bestThreshold {
			leftXs = append(leftXs, xs[i])
			leftYs = append(leftYs, ys[i])
		} else {
			rightXs = append(rightXs, xs[i])
			rightYs = append(rightYs, ys[i])
		}
	}

	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      growTree(leftXs, leftYs, depth+1, params, importances),
		right:     growTree(rightXs, rightYs, depth+1, params, importances),
	}
}

// predict walks the tree for one feature vector.
func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// splitCandidates returns up to maxSplitCandidates midpoints between
// consecutive distinct values of one feature.
func splitCandidates(xs [][]float64, feature int) []float64 {
	values := make([]float64, len(xs))
	for i := range xs {
		values[i] = xs[i][feature]
	}
	sort.Float64s(values)

	var distinct []float64
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	var mids []float64
	for i := 1; i < len(distinct); i++ {
		mids = append(mids, (distinct[i-1]+distinct[i])/2)
	}
	if len(mids) <= maxSplitCandidates {
		return mids
	}
	// Thin out evenly.
	out := make([]float64, 0, maxSplitCandidates)
	step := float64(len(mids)) / maxSplitCandidates
	for i := 0; i < maxSplitCandidates; i++ {
		out = append(out, mids[int(float64(i)*step)])
	}
	return out
}

// bootstrapSample draws len(xs) indices with replacement.
func bootstrapSample(rng *rand.Rand, xs [][]float64, ys []float64) ([][]float64, []float64) {
	n := len(xs)
	sampleXs := make([][]float64, n)
	sampleYs := make([]float64, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		sampleXs[i] = xs[j]
		sampleYs[i] = ys[j]
	}
	return sampleXs, sampleYs
}

func mean(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	sum := 0.0
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

func variance(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	m := mean(ys)
	sum := 0.0
	for _, y := range ys {
		d := y - m
		sum += d * d
	}
	return sum / float64(len(ys))
}

func allEqual(ys []float64) bool {
	for i := 1; i < len(ys); i++ {
		if ys[i] != ys[0] {
			return false
		}
	}
	return true
}
