package mvnclite

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultTopK is the number of categories reported per classification
const DefaultTopK = 5

// Probability is a ranked category
type Probability struct {
	LabelIndex  int
	Label       string
	Probability float32
}

// ClassificationResult is a list of categories in descending probability
type ClassificationResult []Probability

// String formats the result as "label (12.34%), ..."
func (c ClassificationResult) String() string {

	parts := make([]string, len(c))

	for i, p := range c {
		parts[i] = fmt.Sprintf("%s (%.2f%%)", p.Label, p.Probability*100)
	}

	return strings.Join(parts, ", ")
}

// TopK returns the indexes of the k highest probabilities in descending
// order.  Equal probabilities keep ascending index order so the ranking is
// reproducible, NaN ranks below every number.  probs is not modified.
func TopK(probs []float32, k int) []int {

	if k <= 0 {
		return []int{}
	}

	idx := make([]int, len(probs))

	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := probs[idx[a]], probs[idx[b]]

		if pa != pa {
			return false
		}

		if pb != pb {
			return true
		}

		return pa > pb
	})

	if k < len(idx) {
		idx = idx[:k]
	}

	return idx
}

// Rank returns the top k categories of probs, naming them from labels.  An
// index without a label is named "#<index>".
func Rank(probs []float32, labels []string, k int) ClassificationResult {

	top := TopK(probs, k)
	res := make(ClassificationResult, len(top))

	for i, idx := range top {
		label := fmt.Sprintf("#%d", idx)

		if idx < len(labels) {
			label = labels[idx]
		}

		res[i] = Probability{
			LabelIndex:  idx,
			Label:       label,
			Probability: probs[idx],
		}
	}

	return res
}

// GetTop5 outputs the Top5 matches of probs in descending order from top
// match
func GetTop5(probs []float32, labels []string) ClassificationResult {
	return Rank(probs, labels, 5)
}
