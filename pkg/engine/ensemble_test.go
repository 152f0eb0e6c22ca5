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
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

func testModelConfig() api.ModelConfig {
	cfg := api.DefaultModelConfig()
	cfg.NEstimators = 10
	cfg.MaxDepth = 3
	cfg.LearningRate = 0.1
	cfg.CrossValidationFolds = 3
	cfg.EarlyStoppingRounds = 0
	cfg.Seed = 7
	return cfg
}

// linearDataset builds rows where y follows 2*x1 - x2 plus noise, so the
// ensemble has signal to learn.
func linearDataset(n int, seed int64) *dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	records := make([]dataset.Record, n)
	for i := range records {
		x1 := rng.NormFloat64() * 10
		x2 := rng.NormFloat64() * 5
		records[i] = dataset.Record{
			"x1": x1,
			"x2": x2,
			"y":  2*x1 - x2 + rng.NormFloat64(),
		}
	}
	return &dataset.Dataset{Records: records}
}

func TestTrainRejectsEmptyDataset(t *testing.T) {
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	_, err = e.Train(context.Background(), &dataset.Dataset{}, e.cfg)
	require.Error(t, err)
	var invalid *InvalidDatasetError
	require.ErrorAs(t, err, &invalid)
}

func TestTrainRejectsNonNumericDataset(t *testing.T) {
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	ds := &dataset.Dataset{Records: []dataset.Record{
		{"label": "A"}, {"label": "B"},
	}}
	_, err = e.Train(context.Background(), ds, e.cfg)
	var invalid *InvalidDatasetError
	require.ErrorAs(t, err, &invalid)
}

func TestPredictBeforeTrainFails(t *testing.T) {
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	_, err = e.PredictBatch(context.Background(), [][]float64{{1, 2, 3}})
	require.ErrorIs(t, err, ErrModelNotTrained)
	_, err = e.DetectAnomalies(context.Background(), linearDataset(10, 1))
	require.ErrorIs(t, err, ErrModelNotTrained)
}

func TestTrainIsDeterministicForFixedSeed(t *testing.T) {
	ds := linearDataset(200, 3)
	cfg := testModelConfig()

	e1, err := NewBaggedTrees(cfg, nil)
	require.NoError(t, err)
	m1, err := e1.Train(context.Background(), ds, cfg)
	require.NoError(t, err)

	e2, err := NewBaggedTrees(cfg, nil)
	require.NoError(t, err)
	m2, err := e2.Train(context.Background(), ds, cfg)
	require.NoError(t, err)

	assert.Equal(t, m1.Accuracy, m2.Accuracy)
	assert.Equal(t, m1.Precision, m2.Precision)
	assert.Equal(t, m1.Recall, m2.Recall)
	assert.Equal(t, m1.AucRoc, m2.AucRoc)
	assert.Equal(t, m1.FoldScores, m2.FoldScores)
}

func TestFoldScoresKeepFoldOrderUnderParallelTraining(t *testing.T) {
	ds := linearDataset(200, 7)
	cfg := testModelConfig()
	cfg.CrossValidationFolds = 8
	cfg.DistributedComputing = true

	e, err := NewBaggedTrees(cfg, nil)
	require.NoError(t, err)
	first, err := e.Train(context.Background(), ds, cfg)
	require.NoError(t, err)
	require.Len(t, first.FoldScores, cfg.CrossValidationFolds)

	for run := 0; run < 5; run++ {
		e, err := NewBaggedTrees(cfg, nil)
		require.NoError(t, err)
		m, err := e.Train(context.Background(), ds, cfg)
		require.NoError(t, err)
		assert.Equal(t, first.FoldScores, m.FoldScores, "run %d: fold scores must be indexed by fold, not completion order", run)
	}
}

func TestTrainingMetricsRanges(t *testing.T) {
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	m, err := e.Train(context.Background(), linearDataset(200, 3), e.cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Accuracy, 0.0)
	assert.LessOrEqual(t, m.Accuracy, 1.0)
	assert.GreaterOrEqual(t, m.AucRoc, 0.0)
	assert.LessOrEqual(t, m.AucRoc, 1.0)
	assert.Len(t, m.FoldScores, e.cfg.CrossValidationFolds)
	assert.GreaterOrEqual(t, m.SpeedupFactor, 1.0)
}

func TestPredictBatchShapesAndIntervals(t *testing.T) {
	ds := linearDataset(150, 5)
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	_, err = e.Train(context.Background(), ds, e.cfg)
	require.NoError(t, err)

	features := ds.NumericMatrix(ds.NumericColumns())
	result, err := e.PredictBatch(context.Background(), features)
	require.NoError(t, err)
	require.Len(t, result.Predictions, len(features))
	require.Len(t, result.Intervals, len(features))
	for i, p := range result.Predictions {
		low, high := result.Intervals[i][0], result.Intervals[i][1]
		assert.LessOrEqual(t, low, p, "row %d", i)
		assert.GreaterOrEqual(t, high, p, "row %d", i)
	}
}

func TestPredictBatchRejectsWrongWidth(t *testing.T) {
	ds := linearDataset(100, 5)
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	_, err = e.Train(context.Background(), ds, e.cfg)
	require.NoError(t, err)

	_, err = e.PredictBatch(context.Background(), [][]float64{{1.0}})
	require.Error(t, err)
}

func TestDetectAnomaliesFlagsInjectedOutliers(t *testing.T) {
	ds := linearDataset(200, 9)
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	_, err = e.Train(context.Background(), ds, e.cfg)
	require.NoError(t, err)

	// corrupt one row far outside the learned relation
	outlier := dataset.Record{"x1": 1.0, "x2": 1.0, "y": 100000.0}
	scanned := &dataset.Dataset{Records: append(append([]dataset.Record{}, ds.Records...), outlier)}

	records, err := e.DetectAnomalies(context.Background(), scanned)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	found := false
	for _, r := range records {
		if r.Index == len(scanned.Records)-1 {
			found = true
			assert.Equal(t, RiskHigh, r.RiskLevel)
		}
	}
	assert.True(t, found, "outlier row not reported")
}

func TestDetectAnomaliesUsesTrainedThreshold(t *testing.T) {
	ds := linearDataset(300, 11)
	base := testModelConfig()
	e, err := NewBaggedTrees(base, nil)
	require.NoError(t, err)

	loose := base
	loose.AnomalyDetectionThreshold = 0.1
	_, err = e.Train(context.Background(), ds, loose)
	require.NoError(t, err)
	looseRecords, err := e.DetectAnomalies(context.Background(), ds)
	require.NoError(t, err)

	strict := base
	strict.AnomalyDetectionThreshold = 10.0
	_, err = e.Train(context.Background(), ds, strict)
	require.NoError(t, err)
	strictRecords, err := e.DetectAnomalies(context.Background(), ds)
	require.NoError(t, err)

	assert.Greater(t, len(looseRecords), len(strictRecords),
		"detection must honor the threshold the active model was trained with")
	for _, r := range looseRecords {
		assert.Greater(t, r.Score, 0.1)
	}
	for _, r := range strictRecords {
		assert.Greater(t, r.Score, 10.0)
	}
}

func TestDetectAnomaliesMonotoneInThreshold(t *testing.T) {
	ds := linearDataset(300, 11)
	counts := []int{}
	for _, threshold := range []float64{1.0, 2.0, 3.0} {
		cfg := testModelConfig()
		cfg.AnomalyDetectionThreshold = threshold
		e, err := NewBaggedTrees(cfg, nil)
		require.NoError(t, err)
		_, err = e.Train(context.Background(), ds, cfg)
		require.NoError(t, err)
		records, err := e.DetectAnomalies(context.Background(), ds)
		require.NoError(t, err)
		counts = append(counts, len(records))
	}
	assert.GreaterOrEqual(t, counts[0], counts[1])
	assert.GreaterOrEqual(t, counts[1], counts[2])
}

func TestTrainCachesPerConfiguration(t *testing.T) {
	ds := linearDataset(120, 13)
	cfg := testModelConfig()
	e, err := NewBaggedTrees(cfg, nil)
	require.NoError(t, err)
	_, err = e.Train(context.Background(), ds, cfg)
	require.NoError(t, err)
	require.Len(t, e.cache, 1)

	cfg2 := cfg
	cfg2.NEstimators = 20
	_, err = e.Train(context.Background(), ds, cfg2)
	require.NoError(t, err)
	require.Len(t, e.cache, 2, "distinct configuration must cache a distinct model")
}

func TestStatisticalFallbackWhenSchemaDiffers(t *testing.T) {
	e, err := NewBaggedTrees(testModelConfig(), nil)
	require.NoError(t, err)
	_, err = e.Train(context.Background(), linearDataset(100, 17), e.cfg)
	require.NoError(t, err)

	// different schema: detection falls back to per-column deviation
	records := make([]dataset.Record, 100)
	for i := range records {
		records[i] = dataset.Record{"v": 10.0}
	}
	records[50] = dataset.Record{"v": 10000.0}
	found, err := e.DetectAnomalies(context.Background(), &dataset.Dataset{Records: records})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 50, found[0].Index)
	assert.Equal(t, []string{"v"}, found[0].Features)
}
