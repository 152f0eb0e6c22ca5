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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

func TestRecoverFillsMissingWithColumnMean(t *testing.T) {
	// 10 rows, 3 missing: the 7 valid values are 1..7, mean 4
	records := make([]dataset.Record, 10)
	for i := 0; i < 7; i++ {
		records[i] = dataset.Record{"v": float64(i + 1)}
	}
	records[7] = dataset.Record{"v": nil}
	records[8] = dataset.Record{"v": math.NaN()}
	records[9] = dataset.Record{}

	repaired, err := Recover(dataset.NewBatch(records))
	require.NoError(t, err)
	require.Equal(t, 10, repaired.Len())
	for i := 7; i < 10; i++ {
		assert.Equal(t, 4.0, repaired.Records[i]["v"], "row %d", i)
	}
	// valid rows untouched
	assert.Equal(t, 1.0, repaired.Records[0]["v"])
}

func TestRecoverIsIdempotent(t *testing.T) {
	records := []dataset.Record{
		{"v": 1.0}, {"v": 3.0}, {"v": nil},
	}
	once, err := Recover(dataset.NewBatch(records))
	require.NoError(t, err)
	twice, err := Recover(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice, "recovering a valid batch must return it unchanged")
}

func TestRecoverValidBatchReturnsSameBatch(t *testing.T) {
	b := dataset.NewBatch([]dataset.Record{{"v": 1.0}, {"v": 2.0}})
	repaired, err := Recover(b)
	require.NoError(t, err)
	assert.Same(t, b, repaired)
}

func TestRecoverAllMissingColumnFails(t *testing.T) {
	records := []dataset.Record{
		{"v": nil, "w": 1.0},
		{"v": nil, "w": 2.0},
	}
	_, err := Recover(dataset.NewBatch(records))
	require.Error(t, err)
	var unrecoverable *UnrecoverableBatchError
	require.ErrorAs(t, err, &unrecoverable)
	assert.Equal(t, "v", unrecoverable.Column)
}

func TestRecoverLeavesCategoricalGapsAlone(t *testing.T) {
	records := []dataset.Record{
		{"label": "A", "v": 1.0},
		{"label": nil, "v": nil},
		{"label": "B", "v": 3.0},
	}
	repaired, err := Recover(dataset.NewBatch(records))
	require.NoError(t, err)
	// numeric column imputed, categorical gap kept as is
	assert.Equal(t, 2.0, repaired.Records[1]["v"])
	assert.Nil(t, repaired.Records[1]["label"])
}

func TestRecoverEmptyBatch(t *testing.T) {
	b := dataset.NewBatch(nil)
	repaired, err := Recover(b)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired.Len())
}
