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

// Package dataset holds the tabular record model shared by the stream
// processor and the analytics engine.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/insightops/analytics-pipeline/pkg/utils"
)

// Record maps a column name to a typed value (numeric, categorical or timestamp).
type Record map[string]interface{}

// Copy returns a shallow copy of the record.
func (r Record) Copy() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ColumnKind classifies the values of one column.
type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindNumeric
	KindCategorical
	KindTimestamp
)

func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// IsMissing reports whether a cell value counts as absent for recovery purposes.
func IsMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	if f, ok := v.(float32); ok {
		return math.IsNaN(float64(f))
	}
	return false
}

// AsFloat converts a cell value to float64; the second return is false for
// missing or non numeric values.
func AsFloat(v interface{}) (float64, bool) {
	if IsMissing(v) {
		return math.NaN(), false
	}
	switch v.(type) {
	case string, bool, time.Time:
		return math.NaN(), false
	}
	f, err := utils.ConvertToFloat64(v)
	if err != nil {
		return math.NaN(), false
	}
	return f, true
}

// Dataset is an ordered collection of records sharing one column schema.
type Dataset struct {
	Records []Record
}

// New builds a dataset over the given records.
func New(records []Record) *Dataset {
	return &Dataset{Records: records}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Columns returns the sorted column names of the dataset schema.
// Records share the schema, so the union over all records equals the first
// record's keys for well formed data; the union keeps malformed batches usable.
func (d *Dataset) Columns() []string {
	seen := map[string]struct{}{}
	for _, r := range d.Records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Kind infers the kind of a column from its first non missing value.
func (d *Dataset) Kind(column string) ColumnKind {
	for _, r := range d.Records {
		v, ok := r[column]
		if !ok || IsMissing(v) {
			continue
		}
		switch v.(type) {
		case time.Time:
			return KindTimestamp
		case string, bool:
			return KindCategorical
		}
		if _, ok := AsFloat(v); ok {
			return KindNumeric
		}
		return KindCategorical
	}
	return KindUnknown
}

// NumericColumns returns the sorted names of columns holding numeric values.
func (d *Dataset) NumericColumns() []string {
	out := []string{}
	for _, c := range d.Columns() {
		if d.Kind(c) == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// NumericMatrix extracts the given columns as a row major matrix.
// Missing or non numeric cells become NaN.
func (d *Dataset) NumericMatrix(columns []string) [][]float64 {
	matrix := make([][]float64, len(d.Records))
	for i, r := range d.Records {
		row := make([]float64, len(columns))
		for j, c := range columns {
			if f, ok := AsFloat(r[c]); ok {
				row[j] = f
			} else {
				row[j] = math.NaN()
			}
		}
		matrix[i] = row
	}
	return matrix
}

// SchemaHash returns a stable hex digest of the column schema (names and kinds).
func (d *Dataset) SchemaHash() string {
	h := sha256.New()
	for _, c := range d.Columns() {
		h.Write([]byte(c))
		h.Write([]byte{'='})
		h.Write([]byte(d.Kind(c).String()))
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
