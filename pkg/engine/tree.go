/*
 * Copyright (C) 2024 IBM, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package engine

import (
	"math"
	"math/rand"
)

// regTree is one regression tree of the bagging ensemble. Splits minimize the
// weighted variance of the target in the two children.
type regTree struct {
	root *treeNode
}

type treeNode struct {
	splitFeature int
	splitValue   float64
	left         *treeNode
	right        *treeNode
	value        float64
	leaf         bool
}

const minLeafSamples = 2

// buildRegTree fits a tree on the given rows. featureFraction controls how
// many candidate features are examined per split; rng drives the subsampling
// so a fixed seed reproduces the ensemble exactly.
func buildRegTree(features [][]float64, target []float64, maxDepth int, lambda float64, rng *rand.Rand) *regTree {
	t := &regTree{}
	idx := make([]int, len(target))
	for i := range idx {
		idx[i] = i
	}
	t.root = growNode(features, target, idx, maxDepth, lambda, rng)
	return t
}

func growNode(features [][]float64, target []float64, idx []int, depth int, lambda float64, rng *rand.Rand) *treeNode {
	if depth <= 0 || len(idx) < 2*minLeafSamples {
		return leafNode(target, idx, lambda)
	}

	nFeatures := len(features[0])
	// examine a random subset of features, like a random forest does
	nCandidates := int(math.Ceil(math.Sqrt(float64(nFeatures))))
	candidates := rng.Perm(nFeatures)[:nCandidates]

	bestFeature := -1
	bestValue := 0.0
	bestScore := math.Inf(1)
	for _, f := range candidates {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := features[i][f]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi <= lo {
			continue
		}
		// a few random thresholds per feature are enough in a bagged ensemble
		for trial := 0; trial < 4; trial++ {
			split := lo + rng.Float64()*(hi-lo)
			score := splitScore(features, target, idx, f, split)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestValue = split
			}
		}
	}
	if bestFeature < 0 {
		return leafNode(target, idx, lambda)
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][bestFeature] < bestValue {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < minLeafSamples || len(rightIdx) < minLeafSamples {
		return leafNode(target, idx, lambda)
	}

	return &treeNode{
		splitFeature: bestFeature,
		splitValue:   bestValue,
		left:         growNode(features, target, leftIdx, depth-1, lambda, rng),
		right:        growNode(features, target, rightIdx, depth-1, lambda, rng),
	}
}

func leafNode(target []float64, idx []int, lambda float64) *treeNode {
	// L2 regularized leaf value: sum / (count + lambda)
	sum := 0.0
	for _, i := range idx {
		sum += target[i]
	}
	return &treeNode{
		leaf:  true,
		value: sum / (float64(len(idx)) + lambda),
	}
}

func splitScore(features [][]float64, target []float64, idx []int, feature int, split float64) float64 {
	var lSum, lSq, rSum, rSq float64
	var lN, rN int
	for _, i := range idx {
		v := target[i]
		if features[i][feature] < split {
			lSum += v
			lSq += v * v
			lN++
		} else {
			rSum += v
			rSq += v * v
			rN++
		}
	}
	if lN == 0 || rN == 0 {
		return math.Inf(1)
	}
	lVar := lSq - lSum*lSum/float64(lN)
	rVar := rSq - rSum*rSum/float64(rN)
	return lVar + rVar
}

// predict walks the tree for one feature row.
func (t *regTree) predict(row []float64) float64 {
	node := t.root
	for !node.leaf {
		if row[node.splitFeature] < node.splitValue {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}
