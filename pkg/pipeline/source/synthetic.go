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

package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

const (
	defaultSyntheticBatches = 10
	defaultRecordsPerBatch  = 100
)

// SyntheticSource generates batches of sensor style records; useful for
// development and load checks without external systems.
type SyntheticSource struct {
	params    api.SourceSynthetic
	batchSize int

	mu      sync.Mutex
	rng     *rand.Rand
	emitted int
	closed  bool
}

// NewSyntheticSource creates a generator honoring the stream batch size bound.
func NewSyntheticSource(params *api.SourceSynthetic, batchSize int) (*SyntheticSource, error) {
	p := api.SourceSynthetic{}
	if params != nil {
		p = *params
	}
	if p.Batches == 0 {
		p.Batches = defaultSyntheticBatches
	}
	if p.RecordsPerBatch == 0 {
		p.RecordsPerBatch = defaultRecordsPerBatch
	}
	if p.RecordsPerBatch > batchSize {
		p.RecordsPerBatch = batchSize
	}
	log.Debugf("entering NewSyntheticSource, params = %v", p)
	return &SyntheticSource{
		params:    p,
		batchSize: batchSize,
		rng:       rand.New(rand.NewSource(p.Seed)),
	}, nil
}

var categories = []string{"A", "B", "C"}

// NextBatch generates one batch, or signals end-of-stream after the
// configured batch count. Safe to call again after end-of-stream.
func (s *SyntheticSource) NextBatch(_ context.Context) (*dataset.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.params.Batches > 0 && s.emitted >= s.params.Batches) {
		s.closed = true
		return nil, nil
	}
	records := make([]dataset.Record, s.params.RecordsPerBatch)
	base := time.Unix(1700000000, 0).UTC()
	for i := range records {
		records[i] = dataset.Record{
			"timestamp":           base.Add(time.Duration(s.emitted*s.params.RecordsPerBatch+i) * time.Second),
			"sensor_value_1":      100 + 15*s.rng.NormFloat64(),
			"sensor_value_2":      s.rng.ExpFloat64() * 50,
			"categorical_feature": categories[s.rng.Intn(len(categories))],
			"quality_score":       s.rng.Float64(),
		}
	}
	s.emitted++
	return dataset.NewBatch(records), nil
}
