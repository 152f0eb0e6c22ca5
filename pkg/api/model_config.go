/*
 * Copyright (C) 2023 IBM, Inc.
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

package api

// Algorithm identifiers accepted by the engine factory.
const (
	AlgorithmBaggedTrees = "bagged_trees"
)

// ModelConfig carries the hyperparameters of the analytics engine.
type ModelConfig struct {
	Algorithm                 string  `yaml:"algorithm,omitempty" json:"algorithm,omitempty" doc:"engine algorithm identifier, one of: bagged_trees"`
	LearningRate              float64 `yaml:"learningRate,omitempty" json:"learningRate,omitempty" validate:"gt=0" doc:"shrinkage applied to each ensemble member"`
	MaxDepth                  int     `yaml:"maxDepth,omitempty" json:"maxDepth,omitempty" validate:"gt=0" doc:"maximum depth of each regression tree"`
	NEstimators               int     `yaml:"nEstimators,omitempty" json:"nEstimators,omitempty" validate:"gt=0" doc:"number of ensemble members"`
	RegularizationAlpha       float64 `yaml:"regularizationAlpha,omitempty" json:"regularizationAlpha,omitempty" validate:"gte=0" doc:"L1 regularization weight"`
	RegularizationLambda      float64 `yaml:"regularizationLambda,omitempty" json:"regularizationLambda,omitempty" validate:"gte=0" doc:"L2 regularization weight on leaf values"`
	EarlyStoppingRounds       int     `yaml:"earlyStoppingRounds,omitempty" json:"earlyStoppingRounds,omitempty" validate:"gte=0" doc:"stop adding trees after this many rounds without improvement, 0 disables"`
	CrossValidationFolds      int     `yaml:"crossValidationFolds,omitempty" json:"crossValidationFolds,omitempty" validate:"gte=2" doc:"number of folds for cross-validated training metrics"`
	FeatureSelectionThreshold float64 `yaml:"featureSelectionThreshold,omitempty" json:"featureSelectionThreshold,omitempty" validate:"gt=0,lte=1" doc:"cumulative variance share kept by feature selection"`
	AnomalyDetectionThreshold float64 `yaml:"anomalyDetectionThreshold,omitempty" json:"anomalyDetectionThreshold,omitempty" validate:"gt=0" doc:"score above which a row is reported as anomalous"`
	Seed                      int64   `yaml:"seed,omitempty" json:"seed,omitempty" doc:"random seed, fixing it makes training deterministic"`
	AutoFeatureEngineering    bool    `yaml:"autoFeatureEngineering,omitempty" json:"autoFeatureEngineering,omitempty" doc:"derive pairwise interaction features before fitting"`
	DistributedComputing      bool    `yaml:"distributedComputing,omitempty" json:"distributedComputing,omitempty" doc:"run cross-validation folds on parallel workers"`
	GPUAcceleration           bool    `yaml:"gpuAcceleration,omitempty" json:"gpuAcceleration,omitempty" doc:"reserved, accepted for configuration compatibility"`
	MemoryOptimization        bool    `yaml:"memoryOptimization,omitempty" json:"memoryOptimization,omitempty" doc:"reserved, accepted for configuration compatibility"`
}

// DefaultModelConfig returns the hyperparameters used when the configuration
// file leaves the model section out.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Algorithm:                 AlgorithmBaggedTrees,
		LearningRate:              0.001,
		MaxDepth:                  12,
		NEstimators:               100,
		RegularizationAlpha:       0.1,
		RegularizationLambda:      0.1,
		EarlyStoppingRounds:       50,
		CrossValidationFolds:      10,
		FeatureSelectionThreshold: 0.95,
		AnomalyDetectionThreshold: 2.5,
		Seed:                      42,
		AutoFeatureEngineering:    true,
		DistributedComputing:      true,
		GPUAcceleration:           false,
		MemoryOptimization:        true,
	}
}
