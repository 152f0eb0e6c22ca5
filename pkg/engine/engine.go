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

// Package engine provides the pluggable analytics model behind the pipeline:
// ensemble training, batch prediction with uncertainty, and anomaly detection.
package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
	"github.com/insightops/analytics-pipeline/pkg/operational"
)

// Engine is the capability set every analytics implementation exposes.
// Callers never depend on a concrete model family; implementations are
// selected by api.ModelConfig.Algorithm at construction time.
type Engine interface {
	// Train fits the model on the dataset and returns cross-validated metrics.
	// The fitted model is cached keyed by the dataset schema and the config.
	Train(ctx context.Context, ds *dataset.Dataset, cfg api.ModelConfig) (*TrainingMetrics, error)

	// PredictBatch scores a row major numeric matrix and returns one
	// prediction and one [low,high] confidence interval per input row.
	PredictBatch(ctx context.Context, features [][]float64) (*PredictionResult, error)

	// DetectAnomalies scans the dataset rows and reports every row whose
	// anomaly score exceeds the configured detection threshold.
	DetectAnomalies(ctx context.Context, ds *dataset.Dataset) ([]AnomalyRecord, error)
}

// TrainingMetrics summarizes one train invocation. Immutable once returned.
type TrainingMetrics struct {
	Accuracy      float64       `json:"accuracy"`
	Precision     float64       `json:"precision"`
	Recall        float64       `json:"recall"`
	F1Score       float64       `json:"f1Score"`
	AucRoc        float64       `json:"aucRoc"`
	SpeedupFactor float64       `json:"speedupFactor"`
	FoldScores    []float64     `json:"foldScores,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// PredictionResult holds parallel arrays: one prediction and one confidence
// interval per input row, with Low <= Prediction <= High for every row.
type PredictionResult struct {
	Predictions []float64    `json:"predictions"`
	Intervals   [][2]float64 `json:"intervals"`
}

// RiskLevel buckets an anomaly score relative to the detection threshold.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// AnomalyRecord describes one row whose score exceeded the detection threshold.
type AnomalyRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Index      int       `json:"index"`
	Score      float64   `json:"anomalyScore"`
	Confidence float64   `json:"confidence"`
	RiskLevel  RiskLevel `json:"riskLevel"`
	Features   []string  `json:"affectedFeatures"`
}

// ErrModelNotTrained is returned by predict and detect calls issued before a
// model is cached for the current configuration.
var ErrModelNotTrained = errors.New("no model trained for the current configuration")

// InvalidDatasetError rejects training datasets that are empty or carry no
// numeric column.
type InvalidDatasetError struct {
	Reason string
}

func (e *InvalidDatasetError) Error() string {
	return "invalid training dataset: " + e.Reason
}

// NewEngine instantiates the engine selected by cfg.Algorithm.
// Unknown algorithm identifiers are a configuration error.
func NewEngine(cfg api.ModelConfig, opMetrics *operational.Metrics) (Engine, error) {
	switch cfg.Algorithm {
	case "", api.AlgorithmBaggedTrees:
		return NewBaggedTrees(cfg, opMetrics)
	default:
		return nil, errors.Errorf("`algorithm` %s not defined", cfg.Algorithm)
	}
}
