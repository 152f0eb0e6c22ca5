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

package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsSortedUnion(t *testing.T) {
	ds := New([]Record{
		{"b": 1.0, "a": 2.0},
		{"c": 3.0},
	})
	assert.Equal(t, []string{"a", "b", "c"}, ds.Columns())
}

func TestKindInference(t *testing.T) {
	ds := New([]Record{
		{"n": 1.5, "s": "x", "ts": time.Now(), "gap": nil},
		{"gap": 2.0},
	})
	assert.Equal(t, KindNumeric, ds.Kind("n"))
	assert.Equal(t, KindCategorical, ds.Kind("s"))
	assert.Equal(t, KindTimestamp, ds.Kind("ts"))
	// kind comes from the first non missing value
	assert.Equal(t, KindNumeric, ds.Kind("gap"))
	assert.Equal(t, KindUnknown, ds.Kind("absent"))
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing(math.NaN()))
	assert.False(t, IsMissing(0.0))
	assert.False(t, IsMissing("A"))
}

func TestAsFloat(t *testing.T) {
	f, ok := AsFloat(int(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	_, ok = AsFloat("3")
	assert.False(t, ok)
	_, ok = AsFloat(nil)
	assert.False(t, ok)
}

func TestNumericMatrixMissingBecomesNaN(t *testing.T) {
	ds := New([]Record{
		{"v": 1.0, "w": 2.0},
		{"v": nil, "w": 4.0},
	})
	m := ds.NumericMatrix([]string{"v", "w"})
	require.Len(t, m, 2)
	assert.Equal(t, 1.0, m[0][0])
	assert.True(t, math.IsNaN(m[1][0]))
	assert.Equal(t, 4.0, m[1][1])
}

func TestSchemaHashStableAndSchemaSensitive(t *testing.T) {
	a := New([]Record{{"v": 1.0, "s": "x"}})
	b := New([]Record{{"v": 99.0, "s": "y"}})
	c := New([]Record{{"v": 1.0}})
	assert.Equal(t, a.SchemaHash(), b.SchemaHash(), "hash depends on schema, not values")
	assert.NotEqual(t, a.SchemaHash(), c.SchemaHash())
}

func TestSplitPreservesOrderAndBound(t *testing.T) {
	records := make([]Record, 10)
	for i := range records {
		records[i] = Record{"i": float64(i)}
	}
	batches := Split(records, 4)
	require.Len(t, batches, 3)
	assert.Equal(t, 4, batches[0].Len())
	assert.Equal(t, 4, batches[1].Len())
	assert.Equal(t, 2, batches[2].Len())
	assert.Equal(t, 0.0, batches[0].Records[0]["i"])
	assert.Equal(t, 9.0, batches[2].Records[1]["i"])
}

func TestRecordCopyIsIndependent(t *testing.T) {
	r := Record{"v": 1.0}
	c := r.Copy()
	c["v"] = 2.0
	assert.Equal(t, 1.0, r["v"])
}

func TestNilBatchLen(t *testing.T) {
	var b *Batch
	assert.Equal(t, 0, b.Len())
}
