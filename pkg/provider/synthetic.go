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

package provider

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
	"github.com/insightops/analytics-pipeline/pkg/pipeline/source"
)

// SyntheticProvider serves generated sensor datasets, one fresh dataset per
// call, sized by records.
type SyntheticProvider struct {
	records int
	seed    int64
	calls   int64
}

// NewSyntheticProvider creates a provider generating records rows per call.
func NewSyntheticProvider(records int, seed int64) *SyntheticProvider {
	if records <= 0 {
		records = 1000
	}
	return &SyntheticProvider{records: records, seed: seed}
}

// GetDataset drains a one-shot synthetic source into a dataset. Subsequent
// calls use shifted seeds so repeated runs see distinct data.
func (p *SyntheticProvider) GetDataset(ctx context.Context, sourceID string) (*dataset.Dataset, error) {
	log.Debugf("synthetic dataset requested for source %s", sourceID)
	p.calls++
	src, err := source.NewSyntheticSource(&api.SourceSynthetic{
		Batches:         1,
		RecordsPerBatch: p.records,
		Seed:            p.seed + p.calls - 1,
	}, p.records)
	if err != nil {
		return nil, err
	}
	b, err := src.NextBatch(ctx)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &DataSourceUnavailableError{SourceID: sourceID, Reason: "generator exhausted"}
	}
	return b.Dataset(), nil
}
