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

// Package source provides the data sources feeding raw batches into the
// stream processor.
package source

import (
	"context"

	"github.com/pkg/errors"

	"github.com/insightops/analytics-pipeline/pkg/config"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

// DataSource yields raw record batches. A nil batch with a nil error signals
// end-of-stream; every later call keeps returning nil, nil.
type DataSource interface {
	NextBatch(ctx context.Context) (*dataset.Batch, error)
}

// NewDataSource instantiates the source selected by the configuration.
func NewDataSource(params *config.SourceParam, batchSize int) (DataSource, error) {
	switch params.Type {
	case "", "synthetic":
		return NewSyntheticSource(params.Synthetic, batchSize)
	case "file":
		return NewFileSource(params.File, batchSize)
	case "kafka":
		return NewKafkaSource(params.Kafka, batchSize)
	default:
		return nil, errors.Errorf("`source` type %s not defined", params.Type)
	}
}
