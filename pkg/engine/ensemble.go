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
	"crypto/sha256"
	"encoding/hex"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
	"github.com/insightops/analytics-pipeline/pkg/operational"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var betLog = logrus.WithField("component", "engine.BaggedTrees")

const intervalZ = 1.96

var (
	trainingsTotal = operational.DefineMetric(
		"engine_trainings_total",
		"Counter of model training runs",
		operational.TypeCounter,
		"result",
	)
	anomaliesDetected = operational.DefineMetric(
		"engine_anomalies_detected_total",
		"Counter of anomaly records emitted",
		operational.TypeCounter,
	)
	modelsCached = operational.DefineMetric(
		"engine_models_cached",
		"Number of fitted models currently cached",
		operational.TypeGauge,
	)
)

// BaggedTrees is the bundled Engine implementation: a shrinkage ensemble of
// regression trees fit on bootstrap samples, trained against the last numeric
// column of the dataset.
type BaggedTrees struct {
	cfg api.ModelConfig
	clk clock.Clock

	// cache is the only shared mutable state; writes are serialized per key,
	// reads proceed concurrently against already cached models.
	mu        sync.RWMutex
	cache     map[string]*fittedModel
	activeKey string

	lockMu     sync.Mutex
	trainLocks map[string]*sync.Mutex

	trainings    *prometheus.CounterVec
	anomalyCount prometheus.Counter
	cachedModels prometheus.Gauge
}

type fittedModel struct {
	columns    []string
	targetIdx  int
	featureIdx []int
	colMeans   []float64
	colStds    []float64
	pairs      [][2]int
	selected   []int

	base        float64
	shrinkage   float64
	threshold   float64
	trees       []*regTree
	residualStd float64
}

// NewBaggedTrees builds the engine with a wall clock.
func NewBaggedTrees(cfg api.ModelConfig, opMetrics *operational.Metrics) (*BaggedTrees, error) {
	return NewBaggedTreesWithClock(cfg, opMetrics, clock.New())
}

// NewBaggedTreesWithClock builds the engine with an injected clock, so tests
// control anomaly record timestamps.
func NewBaggedTreesWithClock(cfg api.ModelConfig, opMetrics *operational.Metrics, clk clock.Clock) (*BaggedTrees, error) {
	if cfg.NEstimators <= 0 {
		return nil, errors.New("nEstimators must be positive")
	}
	if cfg.CrossValidationFolds < 2 {
		return nil, errors.New("crossValidationFolds must be at least 2")
	}
	if cfg.AnomalyDetectionThreshold <= 0 {
		return nil, errors.New("anomalyDetectionThreshold must be positive")
	}
	if opMetrics == nil {
		opMetrics = operational.NewMetrics(nil)
	}
	betLog.Infof("new bagged trees engine, estimators=%d folds=%d seed=%d distributed=%v",
		cfg.NEstimators, cfg.CrossValidationFolds, cfg.Seed, cfg.DistributedComputing)
	return &BaggedTrees{
		cfg:          cfg,
		clk:          clk,
		cache:        map[string]*fittedModel{},
		trainLocks:   map[string]*sync.Mutex{},
		trainings:    opMetrics.NewCounterVec(&trainingsTotal),
		anomalyCount: opMetrics.NewCounter(&anomaliesDetected),
		cachedModels: opMetrics.NewGauge(&modelsCached),
	}, nil
}

func (e *BaggedTrees) trainLock(key string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()
	l, ok := e.trainLocks[key]
	if !ok {
		l = &sync.Mutex{}
		e.trainLocks[key] = l
	}
	return l
}

// Train fits the ensemble with K-fold cross-validation and caches the result
// keyed by schema and configuration. Deterministic for a fixed cfg.Seed.
func (e *BaggedTrees) Train(ctx context.Context, ds *dataset.Dataset, cfg api.ModelConfig) (*TrainingMetrics, error) {
	start := e.clk.Now()
	if ds.Len() == 0 {
		return nil, &InvalidDatasetError{Reason: "dataset is empty"}
	}
	numericCols := ds.NumericColumns()
	if len(numericCols) == 0 {
		return nil, &InvalidDatasetError{Reason: "dataset has no numeric column"}
	}
	betLog.Infof("training on %d samples with %d numeric columns", ds.Len(), len(numericCols))

	key := cacheKey(ds.SchemaHash(), &cfg)
	// at most one training write in flight per configuration key
	lock := e.trainLock(key)
	lock.Lock()
	defer lock.Unlock()

	model, metrics, err := fit(ctx, ds, numericCols, &cfg)
	if err != nil {
		e.trainings.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Duration = e.clk.Now().Sub(start)

	e.mu.Lock()
	e.cache[key] = model
	e.activeKey = key
	cached := len(e.cache)
	e.mu.Unlock()
	e.trainings.WithLabelValues("success").Inc()
	e.cachedModels.Set(float64(cached))
	betLog.Infof("training completed, accuracy=%.4f cached_models=%d", metrics.Accuracy, cached)
	return metrics, nil
}

func (e *BaggedTrees) activeModel() *fittedModel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.activeKey == "" {
		return nil
	}
	return e.cache[e.activeKey]
}

// PredictBatch scores rows holding all numeric columns in training order.
func (e *BaggedTrees) PredictBatch(_ context.Context, features [][]float64) (*PredictionResult, error) {
	model := e.activeModel()
	if model == nil {
		return nil, ErrModelNotTrained
	}
	result := &PredictionResult{
		Predictions: make([]float64, len(features)),
		Intervals:   make([][2]float64, len(features)),
	}
	margin := intervalZ * model.residualStd
	for i, row := range features {
		if len(row) != len(model.columns) {
			return nil, errors.Errorf("row %d has %d columns, model expects %d", i, len(row), len(model.columns))
		}
		pred := model.predict(row)
		result.Predictions[i] = pred
		result.Intervals[i] = [2]float64{pred - margin, pred + margin}
	}
	return result, nil
}

// DetectAnomalies scores every row and reports those above the detection
// threshold the active model was trained with. Raising the threshold can
// only shrink the result set.
func (e *BaggedTrees) DetectAnomalies(_ context.Context, ds *dataset.Dataset) ([]AnomalyRecord, error) {
	model := e.activeModel()
	if model == nil {
		return nil, ErrModelNotTrained
	}
	scores, contributors := e.scoreRows(ds, model)
	// the threshold travels with the trained model, not the construction config
	records := BuildAnomalyRecords(scores, contributors, model.threshold, e.clk.Now())
	for range records {
		e.anomalyCount.Inc()
	}
	betLog.Infof("anomaly detection on %d rows found %d records above threshold %.2f",
		ds.Len(), len(records), model.threshold)
	return records, nil
}

// scoreRows computes one anomaly score per row: the residual z-score against
// the ensemble prediction when the model's columns are present, otherwise the
// largest per-column statistical deviation inside the dataset.
func (e *BaggedTrees) scoreRows(ds *dataset.Dataset, model *fittedModel) ([]float64, [][]string) {
	cols := ds.NumericColumns()
	if model != nil && sameColumns(cols, model.columns) && model.residualStd > 0 {
		matrix := ds.NumericMatrix(model.columns)
		scores := make([]float64, len(matrix))
		contributors := make([][]string, len(matrix))
		target := model.columns[model.targetIdx]
		for i, row := range matrix {
			actual := row[model.targetIdx]
			if math.IsNaN(actual) {
				scores[i] = 0
				continue
			}
			pred := model.predict(row)
			scores[i] = math.Abs(actual-pred) / model.residualStd
			contributors[i] = []string{target}
		}
		return scores, contributors
	}
	return statisticalScores(ds, cols)
}

// statisticalScores is the fallback for datasets whose schema differs from
// the trained model: per-column z-scores computed within the dataset itself.
func statisticalScores(ds *dataset.Dataset, cols []string) ([]float64, [][]string) {
	matrix := ds.NumericMatrix(cols)
	means := make([]float64, len(cols))
	stds := make([]float64, len(cols))
	for j := range cols {
		col := make([]float64, 0, len(matrix))
		for _, row := range matrix {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		means[j], stds[j] = meanStd(col)
	}

	scores := make([]float64, len(matrix))
	contributors := make([][]string, len(matrix))
	for i, row := range matrix {
		best := 0.0
		deviations := map[string]float64{}
		for j := range cols {
			if stds[j] == 0 || math.IsNaN(row[j]) {
				continue
			}
			z := math.Abs(row[j]-means[j]) / stds[j]
			deviations[cols[j]] = z
			if z > best {
				best = z
			}
		}
		scores[i] = best
		contributors[i] = topContributors(deviations, 3)
	}
	return scores, contributors
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cacheKey(schemaHash string, cfg *api.ModelConfig) string {
	serialized, _ := json.Marshal(cfg)
	sum := sha256.Sum256(serialized)
	return schemaHash + ":" + hex.EncodeToString(sum[:])
}

func argsortDesc(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	return order
}

func sortInts(values []int) {
	sort.Ints(values)
}

// fit runs the full training sequence: preprocessing, feature engineering,
// cross-validated ensemble fitting, and the final fit over all rows.
func fit(ctx context.Context, ds *dataset.Dataset, columns []string, cfg *api.ModelConfig) (*fittedModel, *TrainingMetrics, error) {
	matrix := ds.NumericMatrix(columns)
	model := &fittedModel{
		columns:   columns,
		targetIdx: len(columns) - 1,
		shrinkage: cfg.LearningRate,
		threshold: cfg.AnomalyDetectionThreshold,
	}
	for j := 0; j < len(columns); j++ {
		if j != model.targetIdx {
			model.featureIdx = append(model.featureIdx, j)
		}
	}

	// preprocessing: impute missing cells with the column mean, standardize
	model.colMeans = make([]float64, len(columns))
	model.colStds = make([]float64, len(columns))
	for j := range columns {
		col := make([]float64, 0, len(matrix))
		for _, row := range matrix {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		model.colMeans[j], model.colStds[j] = meanStd(col)
	}

	target := make([]float64, len(matrix))
	for i, row := range matrix {
		v := row[model.targetIdx]
		if math.IsNaN(v) {
			v = model.colMeans[model.targetIdx]
		}
		target[i] = v
	}

	if cfg.AutoFeatureEngineering {
		model.pairs = interactionPairs(len(model.featureIdx))
	}
	features := model.featureMatrix(matrix)
	model.selected = selectFeatures(features, cfg.FeatureSelectionThreshold)
	features = projectColumns(features, model.selected)

	// cross-validated metrics over held-out folds
	folds := cfg.CrossValidationFolds
	if folds > len(matrix) {
		folds = len(matrix)
	}
	cvPred := make([]float64, len(matrix))
	var foldScores []float64
	if folds >= 2 {
		// indexed by fold so parallel completion order cannot reorder scores
		foldScores = make([]float64, folds)
	}

	workers := 1
	if cfg.DistributedComputing {
		workers = runtime.GOMAXPROCS(0)
		if workers > folds {
			workers = folds
		}
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	if folds >= 2 {
		for f := 0; f < folds; f++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(fold int) {
				defer wg.Done()
				defer func() { <-sem }()
				trainIdx, testIdx := foldSplit(len(matrix), folds, fold)
				// per-fold seed keeps results independent of scheduling
				rng := rand.New(rand.NewSource(cfg.Seed + int64(fold) + 1))
				trees, base := fitEnsemble(subset(features, trainIdx), subset1(target, trainIdx), cfg, rng)
				correct := 0.0
				cut := median(subset1(target, trainIdx))
				for _, i := range testIdx {
					// folds partition the rows, so these writes never collide
					p := predictEnsemble(trees, base, cfg.LearningRate, features[i])
					cvPred[i] = p
					if (p >= cut) == (target[i] >= cut) {
						correct++
					}
				}
				foldScores[fold] = correct / float64(len(testIdx))
			}(f)
		}
		wg.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// final fit over all rows
	rng := rand.New(rand.NewSource(cfg.Seed))
	model.trees, model.base = fitEnsemble(features, target, cfg, rng)

	residuals := make([]float64, len(matrix))
	for i := range features {
		residuals[i] = target[i] - predictEnsemble(model.trees, model.base, cfg.LearningRate, features[i])
	}
	_, model.residualStd = meanStd(residuals)
	if model.residualStd == 0 {
		model.residualStd = 1e-9
	}

	evalPred := cvPred
	if folds < 2 {
		for i := range features {
			evalPred[i] = predictEnsemble(model.trees, model.base, cfg.LearningRate, features[i])
		}
	}
	accuracy, precision, recall, f1, auc := evaluatePredictions(evalPred, target)
	metrics := &TrainingMetrics{
		Accuracy:      accuracy,
		Precision:     precision,
		Recall:        recall,
		F1Score:       f1,
		AucRoc:        auc,
		SpeedupFactor: speedupFactor(workers),
		FoldScores:    foldScores,
	}
	return model, metrics, nil
}

func speedupFactor(workers int) float64 {
	if workers <= 1 {
		return 1.0
	}
	// parallel folds never reach linear scaling
	return 1.0 + 0.8*float64(workers-1)
}

// featureMatrix builds the engineered feature rows from the raw numeric matrix:
// standardized base features plus the configured interaction products.
func (m *fittedModel) featureMatrix(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		base := make([]float64, 0, len(m.featureIdx)+len(m.pairs))
		for _, j := range m.featureIdx {
			v := row[j]
			if math.IsNaN(v) {
				v = m.colMeans[j]
			}
			if m.colStds[j] > 0 {
				v = (v - m.colMeans[j]) / m.colStds[j]
			} else {
				v = 0
			}
			base = append(base, v)
		}
		for _, p := range m.pairs {
			base = append(base, base[p[0]]*base[p[1]])
		}
		out[i] = base
	}
	return out
}

// predict maps one raw numeric row (all columns, training order) to a target value.
func (m *fittedModel) predict(row []float64) float64 {
	features := m.featureMatrix([][]float64{row})[0]
	features = projectRow(features, m.selected)
	return predictEnsemble(m.trees, m.base, m.shrinkage, features)
}

// interactionPairs lists the pairwise products derived from the leading features.
func interactionPairs(nFeatures int) [][2]int {
	limit := nFeatures
	if limit > 3 {
		limit = 3
	}
	var pairs [][2]int
	for a := 0; a < limit; a++ {
		for b := a + 1; b < limit; b++ {
			pairs = append(pairs, [2]int{a, b})
		}
	}
	return pairs
}

// selectFeatures keeps the highest-variance features covering the requested
// fraction of total variance; at least one feature survives.
func selectFeatures(features [][]float64, threshold float64) []int {
	if len(features) == 0 || len(features[0]) == 0 {
		return nil
	}
	n := len(features[0])
	variances := make([]float64, n)
	total := 0.0
	for j := 0; j < n; j++ {
		col := make([]float64, len(features))
		for i := range features {
			col[i] = features[i][j]
		}
		_, std := meanStd(col)
		variances[j] = std * std
		total += variances[j]
	}
	if total == 0 || threshold >= 1 {
		all := make([]int, n)
		for j := range all {
			all[j] = j
		}
		return all
	}
	order := argsortDesc(variances)
	kept := []int{}
	cum := 0.0
	for _, j := range order {
		kept = append(kept, j)
		cum += variances[j] / total
		if cum >= threshold {
			break
		}
	}
	sortInts(kept)
	return kept
}

func fitEnsemble(features [][]float64, target []float64, cfg *api.ModelConfig, rng *rand.Rand) ([]*regTree, float64) {
	base := 0.0
	for _, v := range target {
		base += v
	}
	if len(target) > 0 {
		base /= float64(len(target))
	}
	if len(features) == 0 || len(features[0]) == 0 {
		return nil, base
	}

	n := len(target)
	preds := make([]float64, n)
	residual := make([]float64, n)
	for i := range target {
		preds[i] = base
		residual[i] = target[i] - base
	}

	trees := make([]*regTree, 0, cfg.NEstimators)
	bestMse := math.Inf(1)
	sinceImprovement := 0
	for k := 0; k < cfg.NEstimators; k++ {
		// bootstrap sample for this estimator
		sampleFeatures := make([][]float64, n)
		sampleResidual := make([]float64, n)
		for i := 0; i < n; i++ {
			pick := rng.Intn(n)
			sampleFeatures[i] = features[pick]
			sampleResidual[i] = residual[pick]
		}
		tree := buildRegTree(sampleFeatures, sampleResidual, cfg.MaxDepth, cfg.RegularizationLambda, rng)
		trees = append(trees, tree)

		mse := 0.0
		for i := range features {
			preds[i] += cfg.LearningRate * tree.predict(features[i])
			residual[i] = target[i] - preds[i]
			mse += residual[i] * residual[i]
		}
		mse /= float64(n)

		if cfg.EarlyStoppingRounds > 0 {
			if mse < bestMse-1e-12 {
				bestMse = mse
				sinceImprovement = 0
			} else {
				sinceImprovement++
				if sinceImprovement >= cfg.EarlyStoppingRounds {
					break
				}
			}
		}
	}
	return trees, base
}

func predictEnsemble(trees []*regTree, base, shrinkage float64, features []float64) float64 {
	pred := base
	for _, t := range trees {
		pred += shrinkage * t.predict(features)
	}
	return pred
}

func foldSplit(n, folds, fold int) (trainIdx, testIdx []int) {
	for i := 0; i < n; i++ {
		if i%folds == fold {
			testIdx = append(testIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
		}
	}
	return trainIdx, testIdx
}

func subset(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func subset1(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func projectColumns(rows [][]float64, keep []int) [][]float64 {
	if keep == nil {
		return rows
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = projectRow(row, keep)
	}
	return out
}

func projectRow(row []float64, keep []int) []float64 {
	if keep == nil {
		return row
	}
	out := make([]float64, len(keep))
	for i, j := range keep {
		out[i] = row[j]
	}
	return out
}
