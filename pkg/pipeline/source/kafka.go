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
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// kafkaMessageReader abstracts the kafka reader for tests.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

// KafkaSource consumes JSON encoded records from a Kafka topic and groups
// them into batches bounded by the stream batch size.
type KafkaSource struct {
	params    api.SourceKafka
	reader    kafkaMessageReader
	batchSize int
	closed    bool
}

// NewKafkaSource connects a reader to the configured brokers.
func NewKafkaSource(params *api.SourceKafka, batchSize int) (*KafkaSource, error) {
	if params == nil || len(params.Brokers) == 0 || params.Topic == "" {
		return nil, errors.New("kafka source needs brokers and a topic")
	}
	log.Debugf("entering NewKafkaSource, topic = %s", params.Topic)
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: params.Brokers,
		Topic:   params.Topic,
		GroupID: params.GroupID,
	})
	return &KafkaSource{
		params:    *params,
		reader:    reader,
		batchSize: batchSize,
	}, nil
}

// drainTimeout bounds how long a started batch waits for more messages.
const drainTimeout = 50 * time.Millisecond

// NextBatch blocks until at least one record arrives, then drains already
// queued messages up to the batch size. Context cancellation signals
// end-of-stream; later calls keep signaling it.
func (s *KafkaSource) NextBatch(ctx context.Context) (*dataset.Batch, error) {
	if s.closed {
		return nil, nil
	}
	m, err := s.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.closed = true
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading kafka message")
	}
	records := make([]dataset.Record, 0, s.batchSize)
	records = s.appendRecord(records, m)

	for len(records) < s.batchSize {
		drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		m, err := s.reader.ReadMessage(drainCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				s.closed = true
			}
			break
		}
		records = s.appendRecord(records, m)
	}
	return dataset.NewBatch(records), nil
}

func (s *KafkaSource) appendRecord(records []dataset.Record, m kafkago.Message) []dataset.Record {
	record := dataset.Record{}
	if err := json.Unmarshal(m.Value, &record); err != nil {
		log.Errorf("cannot decode kafka message at offset %d: %v", m.Offset, err)
		return records
	}
	return append(records, record)
}
