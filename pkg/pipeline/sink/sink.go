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

package sink

import (
	"github.com/pkg/errors"

	"github.com/insightops/analytics-pipeline/pkg/config"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

// Sink receives processed batches at the end of the stream loop.
type Sink interface {
	// Write forwards one processed batch. A returned error is per batch,
	// the caller drops the batch and keeps the loop running.
	Write(b *dataset.Batch) error
}

// NewSink builds the sink selected by the configuration.
func NewSink(params *config.SinkParam) (Sink, error) {
	if params == nil || params.Type == "" {
		return NewStdoutSink(nil), nil
	}
	switch params.Type {
	case "stdout":
		return NewStdoutSink(params.Stdout), nil
	case "kafka":
		return NewKafkaSink(params.Kafka)
	case "none":
		return NewNoneSink(), nil
	default:
		return nil, errors.Errorf("`sink.type` %s not defined", params.Type)
	}
}

type noneSink struct{}

func (noneSink) Write(_ *dataset.Batch) error {
	return nil
}

// NewNoneSink discards every batch. Useful when only the counters and the
// analysis reports matter.
func NewNoneSink() Sink {
	return noneSink{}
}
