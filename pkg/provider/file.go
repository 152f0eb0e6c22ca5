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
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
	"github.com/insightops/analytics-pipeline/pkg/pipeline/source"
)

// FileProvider resolves source identifiers to CSV files under a base
// directory and loads them whole.
type FileProvider struct {
	baseDir   string
	batchSize int
}

// NewFileProvider creates a provider rooted at baseDir.
func NewFileProvider(baseDir string, batchSize int) *FileProvider {
	if batchSize <= 0 {
		batchSize = api.DefaultStreamConfig().BatchSize
	}
	return &FileProvider{baseDir: baseDir, batchSize: batchSize}
}

// GetDataset loads <baseDir>/<sourceID>.csv into a dataset.
func (p *FileProvider) GetDataset(ctx context.Context, sourceID string) (*dataset.Dataset, error) {
	filename := filepath.Join(p.baseDir, sourceID+".csv")
	if _, err := os.Stat(filename); err != nil {
		return nil, &DataSourceUnavailableError{SourceID: sourceID, Reason: err.Error()}
	}
	src, err := source.NewFileSource(&api.SourceFile{Filename: filename}, p.batchSize)
	if err != nil {
		return nil, &DataSourceUnavailableError{SourceID: sourceID, Reason: err.Error()}
	}
	records := make([]dataset.Record, 0, p.batchSize)
	for {
		b, err := src.NextBatch(ctx)
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		records = append(records, b.Records...)
	}
	log.Debugf("loaded %d records from %s", len(records), filename)
	return &dataset.Dataset{Records: records}, nil
}
