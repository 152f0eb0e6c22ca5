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

package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

var recLog = logrus.WithField("component", "pipeline.Recover")

// Recover repairs a batch that failed validation: every missing numeric value
// is replaced with the mean of the valid values in its column. Deterministic
// and idempotent; an already valid batch comes back unchanged. A column with
// zero valid values cannot be repaired and yields UnrecoverableBatchError.
func Recover(b *dataset.Batch) (*dataset.Batch, error) {
	if b.Len() == 0 {
		return b, nil
	}
	ds := b.Dataset()
	columns := ds.Columns()

	means := map[string]float64{}
	hasMissing := false
	for _, col := range columns {
		sum := 0.0
		numericValid := 0
		valid := 0
		missing := 0
		for _, record := range b.Records {
			v, ok := record[col]
			if !ok || dataset.IsMissing(v) {
				missing++
				continue
			}
			valid++
			if f, isNum := dataset.AsFloat(v); isNum {
				sum += f
				numericValid++
			}
		}
		if missing == 0 {
			continue
		}
		hasMissing = true
		if valid == 0 {
			return nil, &UnrecoverableBatchError{Column: col}
		}
		// mean imputation is defined for numeric columns only
		if numericValid == valid {
			means[col] = sum / float64(numericValid)
		}
	}
	if !hasMissing {
		return b, nil
	}

	repaired := make([]dataset.Record, len(b.Records))
	for i, record := range b.Records {
		out := record.Copy()
		for col, mean := range means {
			if v, ok := out[col]; !ok || dataset.IsMissing(v) {
				out[col] = mean
			}
		}
		repaired[i] = out
	}
	recLog.Debugf("recovered batch: imputed %d columns over %d records", len(means), len(repaired))
	return dataset.NewBatch(repaired), nil
}
