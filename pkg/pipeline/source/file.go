/*
 * Copyright (C) 2021 IBM, Inc.
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
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

// FileSource reads record batches from a CSV file with a header row.
// Numeric cells become float64; empty cells become missing values.
type FileSource struct {
	params    api.SourceFile
	batchSize int

	file    *os.File
	reader  *csv.Reader
	headers []string
	closed  bool
}

// NewFileSource opens the configured file and reads its header.
func NewFileSource(params *api.SourceFile, batchSize int) (*FileSource, error) {
	if params == nil || params.Filename == "" {
		return nil, errors.New("source filename not specified")
	}
	file, err := os.Open(params.Filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", params.Filename)
	}
	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "reading header of %s", params.Filename)
	}
	log.Infof("input file name = %s, %d columns", params.Filename, len(headers))
	return &FileSource{
		params:    *params,
		batchSize: batchSize,
		file:      file,
		reader:    reader,
		headers:   headers,
	}, nil
}

// NextBatch reads up to batchSize rows. On end of file it either rewinds
// (loop mode) or signals end-of-stream; later calls keep signaling it.
func (s *FileSource) NextBatch(_ context.Context) (*dataset.Batch, error) {
	if s.closed {
		return nil, nil
	}
	records := make([]dataset.Record, 0, s.batchSize)
	for len(records) < s.batchSize {
		row, err := s.reader.Read()
		if err == io.EOF {
			if s.params.Loop && len(records) == 0 {
				if rewindErr := s.rewind(); rewindErr != nil {
					return nil, rewindErr
				}
				continue
			}
			if len(records) == 0 {
				s.close()
				return nil, nil
			}
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading csv row")
		}
		records = append(records, s.toRecord(row))
	}
	return dataset.NewBatch(records), nil
}

func (s *FileSource) toRecord(row []string) dataset.Record {
	record := make(dataset.Record, len(s.headers))
	for i, col := range s.headers {
		if i >= len(row) || row[i] == "" {
			record[col] = nil
			continue
		}
		if f, err := strconv.ParseFloat(row[i], 64); err == nil {
			record[col] = f
		} else {
			record[col] = row[i]
		}
	}
	return record
}

func (s *FileSource) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewinding csv file")
	}
	s.reader = csv.NewReader(s.file)
	// skip the header again
	if _, err := s.reader.Read(); err != nil {
		return errors.Wrap(err, "re-reading csv header")
	}
	return nil
}

func (s *FileSource) close() {
	s.closed = true
	_ = s.file.Close()
}
