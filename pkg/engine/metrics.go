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
	"sort"
)

// evaluatePredictions derives classification style metrics from cross
// validated predictions of a continuous target. The target is binarized at
// its median; predictions are classified with the same cut so all scores land
// in [0,1] regardless of the target scale.
func evaluatePredictions(predictions, target []float64) (accuracy, precision, recall, f1, auc float64) {
	if len(target) == 0 || len(predictions) != len(target) {
		return 0, 0, 0, 0, 0
	}
	cut := median(target)

	var tp, fp, tn, fn int
	for i := range target {
		actual := target[i] >= cut
		predicted := predictions[i] >= cut
		switch {
		case actual && predicted:
			tp++
		case !actual && predicted:
			fp++
		case !actual && !predicted:
			tn++
		default:
			fn++
		}
	}

	total := float64(len(target))
	accuracy = float64(tp+tn) / total
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	auc = rankAuc(predictions, target, cut)
	return accuracy, precision, recall, f1, auc
}

// rankAuc computes the Mann-Whitney AUC of the prediction scores against the
// binarized labels; ties contribute one half.
func rankAuc(scores, target []float64, cut float64) float64 {
	var pos, neg []float64
	for i := range target {
		if target[i] >= cut {
			pos = append(pos, scores[i])
		} else {
			neg = append(neg, scores[i])
		}
	}
	if len(pos) == 0 || len(neg) == 0 {
		return 0.5
	}
	wins := 0.0
	for _, p := range pos {
		for _, n := range neg {
			switch {
			case p > n:
				wins++
			case p == n:
				wins += 0.5
			}
		}
	}
	return wins / float64(len(pos)*len(neg))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum, sq float64
	for _, v := range values {
		sum += v
		sq += v * v
	}
	n := float64(len(values))
	mean = sum / n
	variance := sq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
