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
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/config"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

type fakeWriter struct {
	written []kafkago.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.written = append(w.written, msgs...)
	return nil
}

func TestKafkaSinkWritesOneMessagePerRecord(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w}

	b := dataset.NewBatch([]dataset.Record{{"v": 1.0}, {"v": 2.0}})
	require.NoError(t, s.Write(b))
	require.Len(t, w.written, 2)

	var decoded dataset.Record
	require.NoError(t, json.Unmarshal(w.written[0].Value, &decoded))
	assert.Equal(t, 1.0, decoded["v"])
}

func TestKafkaSinkForwardsCompressedPayloadWhole(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w}

	b := dataset.NewBatch([]dataset.Record{{"v": 1.0}, {"v": 2.0}})
	b.Compressed = []byte("payload")
	require.NoError(t, s.Write(b))
	require.Len(t, w.written, 1)
	assert.Equal(t, []byte("payload"), w.written[0].Value)
}

func TestNewKafkaSinkRejectsMissingParams(t *testing.T) {
	_, err := NewKafkaSink(nil)
	require.Error(t, err)
	_, err = NewKafkaSink(&api.SinkKafka{Address: "localhost:9092"})
	require.Error(t, err)
}

func TestNewSinkSelection(t *testing.T) {
	s, err := NewSink(&config.SinkParam{Type: "none"})
	require.NoError(t, err)
	require.NoError(t, s.Write(dataset.NewBatch(nil)))

	s, err = NewSink(nil)
	require.NoError(t, err)
	assert.IsType(t, &stdoutSink{}, s)

	_, err = NewSink(&config.SinkParam{Type: "telegraph"})
	require.Error(t, err)
}
