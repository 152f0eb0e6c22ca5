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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 5.0, median([]float64{5}))
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)
}

func TestEvaluatePredictionsPerfect(t *testing.T) {
	target := []float64{1, 2, 3, 4, 5, 6}
	accuracy, precision, recall, f1, auc := evaluatePredictions(target, target)
	assert.Equal(t, 1.0, accuracy)
	assert.Equal(t, 1.0, precision)
	assert.Equal(t, 1.0, recall)
	assert.Equal(t, 1.0, f1)
	assert.Equal(t, 1.0, auc)
}

func TestEvaluatePredictionsInverted(t *testing.T) {
	target := []float64{1, 2, 3, 4, 5, 6}
	inverted := []float64{6, 5, 4, 3, 2, 1}
	accuracy, _, _, _, auc := evaluatePredictions(inverted, target)
	assert.Less(t, accuracy, 0.5)
	assert.Equal(t, 0.0, auc)
}

func TestRankAucTiesScoreHalf(t *testing.T) {
	scores := []float64{1, 1, 1, 1}
	target := []float64{0, 0, 1, 1}
	assert.InDelta(t, 0.5, rankAuc(scores, target, 0.5), 1e-9)
}
