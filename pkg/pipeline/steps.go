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
	"math"

	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

// stepFunc applies one preprocessing transformation to a batch.
type stepFunc func(*dataset.Batch) *dataset.Batch

const (
	StepNormalize    = "normalize"
	StepStandardize  = "standardize"
	StepDropMissing  = "drop_missing"
	StepClipOutliers = "clip_outliers"
)

// resolveSteps maps configured step names to implementations, in order.
// Unknown names fail here, at configuration validation time, never per batch.
func resolveSteps(names []string) ([]stepFunc, error) {
	steps := make([]stepFunc, 0, len(names))
	for _, name := range names {
		switch name {
		case StepNormalize:
			steps = append(steps, normalizeStep)
		case StepStandardize:
			steps = append(steps, standardizeStep)
		case StepDropMissing:
			steps = append(steps, dropMissingStep)
		case StepClipOutliers:
			steps = append(steps, clipOutliersStep)
		default:
			return nil, &UnknownPreprocessingStepError{Step: name}
		}
	}
	return steps, nil
}

// applyRules runs the ordered preprocessing steps over the batch.
func (p *Processor) applyRules(b *dataset.Batch) *dataset.Batch {
	for _, step := range p.steps {
		b = step(b)
	}
	return b
}

func columnStats(b *dataset.Batch, col string) (lo, hi, mean, std float64, n int) {
	lo, hi = math.Inf(1), math.Inf(-1)
	var sum, sq float64
	for _, record := range b.Records {
		v, ok := dataset.AsFloat(record[col])
		if !ok {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
		sq += v * v
		n++
	}
	if n > 0 {
		mean = sum / float64(n)
		variance := sq/float64(n) - mean*mean
		if variance > 0 {
			std = math.Sqrt(variance)
		}
	}
	return lo, hi, mean, std, n
}

func mapNumeric(b *dataset.Batch, col string, f func(float64) float64) *dataset.Batch {
	out := make([]dataset.Record, len(b.Records))
	for i, record := range b.Records {
		c := record.Copy()
		if v, ok := dataset.AsFloat(c[col]); ok {
			c[col] = f(v)
		}
		out[i] = c
	}
	return dataset.NewBatch(out)
}

// normalizeStep rescales every numeric column into [0,1].
func normalizeStep(b *dataset.Batch) *dataset.Batch {
	for _, col := range b.Dataset().NumericColumns() {
		lo, hi, _, _, n := columnStats(b, col)
		if n == 0 || hi <= lo {
			continue
		}
		span := hi - lo
		b = mapNumeric(b, col, func(v float64) float64 {
			return (v - lo) / span
		})
	}
	return b
}

// standardizeStep centers every numeric column to zero mean, unit variance.
func standardizeStep(b *dataset.Batch) *dataset.Batch {
	for _, col := range b.Dataset().NumericColumns() {
		_, _, mean, std, n := columnStats(b, col)
		if n == 0 || std == 0 {
			continue
		}
		b = mapNumeric(b, col, func(v float64) float64 {
			return (v - mean) / std
		})
	}
	return b
}

// dropMissingStep removes records still carrying missing values.
func dropMissingStep(b *dataset.Batch) *dataset.Batch {
	cols := b.Dataset().Columns()
	kept := make([]dataset.Record, 0, len(b.Records))
	for _, record := range b.Records {
		complete := true
		for _, col := range cols {
			if v, ok := record[col]; !ok || dataset.IsMissing(v) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, record)
		}
	}
	if len(kept) == len(b.Records) {
		return b
	}
	return dataset.NewBatch(kept)
}

// clipOutliersStep clamps numeric values to mean +/- 3 standard deviations.
func clipOutliersStep(b *dataset.Batch) *dataset.Batch {
	for _, col := range b.Dataset().NumericColumns() {
		_, _, mean, std, n := columnStats(b, col)
		if n == 0 || std == 0 {
			continue
		}
		lo, hi := mean-3*std, mean+3*std
		b = mapNumeric(b, col, func(v float64) float64 {
			if v < lo {
				return lo
			}
			if v > hi {
				return hi
			}
			return v
		})
	}
	return b
}
