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

package dataset

// Batch is a bounded, ordered group of records processed as one unit by the
// stream processor. Its record count never exceeds the configured batch size;
// sources enforce the bound when building batches.
type Batch struct {
	Records []Record

	// Compressed holds the snappy encoded payload once the securing stage ran
	// with compression enabled; nil otherwise.
	Compressed []byte

	// Encrypted marks that the encryption hook processed the batch.
	Encrypted bool
}

// NewBatch builds a batch over the given records.
func NewBatch(records []Record) *Batch {
	return &Batch{Records: records}
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// Dataset exposes the batch records under the dataset helpers.
func (b *Batch) Dataset() *Dataset {
	return &Dataset{Records: b.Records}
}

// Split cuts records into batches of at most size records, preserving order.
func Split(records []Record, size int) []*Batch {
	if size <= 0 || len(records) == 0 {
		return nil
	}
	batches := make([]*Batch, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, NewBatch(records[start:end]))
	}
	return batches
}
