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

package orchestrator

import (
	"runtime"

	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"

	"github.com/insightops/analytics-pipeline/pkg/api"
)

// defaultChecks is the fixed initialization sequence. Each check validates
// one subsystem against the loaded configuration; any failure aborts
// initialization.
func (o *Orchestrator) defaultChecks() []NamedCheck {
	return []NamedCheck{
		{Name: "data-pipeline-integrity", Check: o.checkPipelineIntegrity()},
		{Name: "encryption-module", Check: o.checkEncryptionModule()},
		{Name: "processing-queue", Check: o.checkProcessingQueue()},
		{Name: "compute-nodes", Check: o.checkComputeNodes()},
		{Name: "model-registry", Check: o.checkModelRegistry()},
	}
}

func (o *Orchestrator) checkPipelineIntegrity() healthcheck.Check {
	return func() error {
		if o.cfg.Stream.BatchSize <= 0 {
			return errors.New("stream batch size must be positive")
		}
		return nil
	}
}

func (o *Orchestrator) checkEncryptionModule() healthcheck.Check {
	return func() error {
		switch o.cfg.Stream.CompressionAlgorithm {
		case "", api.CompressionNone, api.CompressionSnappy:
			return nil
		default:
			return errors.Errorf("unsupported compression algorithm %q", o.cfg.Stream.CompressionAlgorithm)
		}
	}
}

func (o *Orchestrator) checkProcessingQueue() healthcheck.Check {
	return func() error {
		if o.cfg.Stream.QueueCapacity <= 0 {
			return errors.New("queue capacity must be positive")
		}
		return nil
	}
}

func (o *Orchestrator) checkComputeNodes() healthcheck.Check {
	return func() error {
		if runtime.NumCPU() < 1 {
			return errors.New("no compute capacity available")
		}
		return nil
	}
}

func (o *Orchestrator) checkModelRegistry() healthcheck.Check {
	return func() error {
		if o.cfg.Model.NEstimators <= 0 {
			return errors.New("model registry rejects a zero estimator ensemble")
		}
		return nil
	}
}
