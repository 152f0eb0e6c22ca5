/*
 * Copyright (C) 2021 IBM, Inc.
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

package config

import (
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/insightops/analytics-pipeline/pkg/api"
)

// Options holds the raw command line / environment configuration.
// Model, Stream, Source and Sink are JSON strings, unmarshalled by ParseConfig.
type Options struct {
	Model   string
	Stream  string
	Source  string
	Sink    string
	Health  Health
	Metrics Metrics
	Profile Profile
}

type Health struct {
	Address string
	Port    string
}

type Metrics struct {
	Port   int
	Prefix string
}

type Profile struct {
	Port int
}

// SourceParam selects and configures the data source feeding the stream processor.
type SourceParam struct {
	Type      string               `yaml:"type" json:"type"`
	Synthetic *api.SourceSynthetic `yaml:"synthetic,omitempty" json:"synthetic,omitempty"`
	File      *api.SourceFile      `yaml:"file,omitempty" json:"file,omitempty"`
	Kafka     *api.SourceKafka     `yaml:"kafka,omitempty" json:"kafka,omitempty"`
}

// SinkParam selects and configures the destination of emitted batches.
type SinkParam struct {
	Type   string          `yaml:"type" json:"type"`
	Stdout *api.SinkStdout `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Kafka  *api.SinkKafka  `yaml:"kafka,omitempty" json:"kafka,omitempty"`
}

// ConfigFileStruct is the typed representation of the full configuration.
type ConfigFileStruct struct {
	Model                  api.ModelConfig  `yaml:"model" json:"model"`
	Stream                 api.StreamConfig `yaml:"stream" json:"stream"`
	Source                 SourceParam      `yaml:"source" json:"source"`
	Sink                   SinkParam        `yaml:"sink" json:"sink"`
	UrgentAnomalyThreshold int              `yaml:"urgentAnomalyThreshold,omitempty" json:"urgentAnomalyThreshold,omitempty"`
}

// DefaultUrgentAnomalyThreshold is the anomaly count above which the urgent
// recommendation is added to analysis reports.
const DefaultUrgentAnomalyThreshold = 5

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseConfig creates the internal typed configuration from the option JSON strings.
// Invalid hyperparameter ranges are fatal here, never mid-stream.
func ParseConfig(opts *Options) (ConfigFileStruct, error) {
	out := ConfigFileStruct{
		Model:                  api.DefaultModelConfig(),
		Stream:                 api.DefaultStreamConfig(),
		UrgentAnomalyThreshold: DefaultUrgentAnomalyThreshold,
	}
	if opts.Model != "" {
		if err := json.Unmarshal([]byte(opts.Model), &out.Model); err != nil {
			return out, errors.Wrap(err, "parsing model config")
		}
	}
	if opts.Stream != "" {
		if err := json.Unmarshal([]byte(opts.Stream), &out.Stream); err != nil {
			return out, errors.Wrap(err, "parsing stream config")
		}
	}
	if opts.Source != "" {
		if err := json.Unmarshal([]byte(opts.Source), &out.Source); err != nil {
			return out, errors.Wrap(err, "parsing source config")
		}
	}
	if opts.Sink != "" {
		if err := json.Unmarshal([]byte(opts.Sink), &out.Sink); err != nil {
			return out, errors.Wrap(err, "parsing sink config")
		}
	}
	if err := Validate(&out); err != nil {
		return out, err
	}
	return out, nil
}

var validate = validator.New()

// Validate checks hyperparameter ranges on the typed configuration.
func Validate(cfg *ConfigFileStruct) error {
	if err := validate.Struct(&cfg.Model); err != nil {
		return errors.Wrap(err, "invalid model config")
	}
	if err := validate.Struct(&cfg.Stream); err != nil {
		return errors.Wrap(err, "invalid stream config")
	}
	switch cfg.Stream.CompressionAlgorithm {
	case "", api.CompressionNone, api.CompressionSnappy:
	default:
		return errors.Errorf("unknown compression algorithm %q", cfg.Stream.CompressionAlgorithm)
	}
	if cfg.UrgentAnomalyThreshold < 0 {
		return errors.New("urgentAnomalyThreshold must not be negative")
	}
	return nil
}
