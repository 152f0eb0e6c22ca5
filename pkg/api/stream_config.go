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

// CompressionAlgorithm names the codec applied to emitted batch payloads.
type CompressionAlgorithm string

const (
	CompressionNone   CompressionAlgorithm = "none"
	CompressionSnappy CompressionAlgorithm = "snappy"
)

// ValidationRuleType names a batch validation rule implementation.
type ValidationRuleType string

const (
	RuleRequiredColumns ValidationRuleType = "required_columns"
	RuleNumericRange    ValidationRuleType = "numeric_range"
	RuleMaxMissingRatio ValidationRuleType = "max_missing_ratio"
	RuleExpression      ValidationRuleType = "expression"
)

// ValidationRule configures one named validation rule. Parameters are decoded
// per rule type when the processor is built, so unknown rules or malformed
// parameters fail at configuration time.
type ValidationRule struct {
	Type       ValidationRuleType     `yaml:"type" json:"type" doc:"one of: required_columns, numeric_range, max_missing_ratio, expression"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty" json:"parameters,omitempty" doc:"rule specific parameters"`
}

// StreamConfig carries the stream processor configuration.
type StreamConfig struct {
	SourceEndpoints      []string                  `yaml:"sourceEndpoints,omitempty" json:"sourceEndpoints,omitempty" doc:"informational list of upstream endpoints"`
	PreprocessingSteps   []string                  `yaml:"preprocessingSteps,omitempty" json:"preprocessingSteps,omitempty" doc:"ordered step names applied to every batch"`
	ValidationRules      map[string]ValidationRule `yaml:"validationRules,omitempty" json:"validationRules,omitempty" doc:"named validation rules, all must pass"`
	EncryptionEnabled    bool                      `yaml:"encryptionEnabled,omitempty" json:"encryptionEnabled,omitempty" doc:"run the encryption hook on emitted payloads"`
	CompressionAlgorithm CompressionAlgorithm      `yaml:"compressionAlgorithm,omitempty" json:"compressionAlgorithm,omitempty" doc:"payload compression, one of: none, snappy"`
	BatchSize            int                       `yaml:"batchSize,omitempty" json:"batchSize,omitempty" validate:"gt=0" doc:"upper bound on records per batch"`
	StreamingWindowMs    int                       `yaml:"streamingWindowMs,omitempty" json:"streamingWindowMs,omitempty" validate:"gte=0" doc:"aggregation window in milliseconds"`
	ErrorTolerance       float64                   `yaml:"errorTolerance,omitempty" json:"errorTolerance,omitempty" validate:"gte=0,lte=1" doc:"tolerated fraction of dropped batches"`
	BackupStrategy       string                    `yaml:"backupStrategy,omitempty" json:"backupStrategy,omitempty" doc:"informational backup strategy label"`
	QueueCapacity        int                       `yaml:"queueCapacity,omitempty" json:"queueCapacity,omitempty" validate:"gt=0" doc:"bounded ingestion queue capacity, producers block when full"`
}

// DefaultStreamConfig returns the stream settings used when the configuration
// file leaves the stream section out.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		EncryptionEnabled:    false,
		CompressionAlgorithm: CompressionNone,
		BatchSize:            10000,
		StreamingWindowMs:    1000,
		ErrorTolerance:       0.001,
		BackupStrategy:       "replicated",
		QueueCapacity:        100000,
	}
}
