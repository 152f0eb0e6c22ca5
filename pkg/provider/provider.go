/*
 * Copyright (C) 2022 IBM, Inc.
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

// Package provider acquires datasets for analysis runs. The orchestrator
// talks to a DatasetProvider and never to the raw source directly.
package provider

import (
	"context"

	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

// DatasetProvider resolves a source identifier to a dataset.
type DatasetProvider interface {
	GetDataset(ctx context.Context, sourceID string) (*dataset.Dataset, error)
}

// DataSourceUnavailableError reports a source that cannot serve data right
// now. The orchestrator maps it to a failed analysis run, not a failed
// system.
type DataSourceUnavailableError struct {
	SourceID string
	Reason   string
}

func (e *DataSourceUnavailableError) Error() string {
	return "data source " + e.SourceID + " unavailable: " + e.Reason
}
