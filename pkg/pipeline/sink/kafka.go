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

package sink

import (
	"context"
	"time"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

const defaultWriteTimeoutSeconds = int64(10)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// KafkaSink produces one message per record to a Kafka topic. When the batch
// carries a compressed payload the whole batch goes out as a single message.
type KafkaSink struct {
	writer kafkaMessageWriter
}

// Write forwards the batch to the topic.
func (s *KafkaSink) Write(b *dataset.Batch) error {
	log.Debugf("entering KafkaSink Write, number of records = %d", b.Len())
	if len(b.Compressed) > 0 {
		msg := kafkago.Message{Value: b.Compressed}
		return errors.Wrap(s.writer.WriteMessages(context.Background(), msg), "writing compressed batch")
	}
	msgs := make([]kafkago.Message, 0, b.Len())
	for _, r := range b.Records {
		value, err := json.Marshal(r)
		if err != nil {
			log.Errorf("cannot encode record, skipping: %v", err)
			continue
		}
		msgs = append(msgs, kafkago.Message{Value: value})
	}
	return errors.Wrap(s.writer.WriteMessages(context.Background(), msgs...), "writing batch")
}

// NewKafkaSink connects a writer to the configured broker.
func NewKafkaSink(params *api.SinkKafka) (*KafkaSink, error) {
	if params == nil || params.Address == "" || params.Topic == "" {
		return nil, errors.New("kafka sink needs an address and a topic")
	}
	log.Debugf("entering NewKafkaSink, topic = %s", params.Topic)
	writeTimeout := defaultWriteTimeoutSeconds
	if params.WriteTimeout != 0 {
		writeTimeout = params.WriteTimeout
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(params.Address),
		Topic:        params.Topic,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
	return &KafkaSink{writer: writer}, nil
}
