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

package api

// SourceSynthetic generates a bounded stream of synthetic sensor records.
type SourceSynthetic struct {
	Batches         int   `yaml:"batches,omitempty" json:"batches,omitempty" doc:"number of batches before end-of-stream, 0 means default"`
	RecordsPerBatch int   `yaml:"recordsPerBatch,omitempty" json:"recordsPerBatch,omitempty" doc:"records per generated batch"`
	Seed            int64 `yaml:"seed,omitempty" json:"seed,omitempty" doc:"random seed of the generator"`
}

// SourceFile reads records from a CSV file with a header row.
type SourceFile struct {
	Filename string `yaml:"filename" json:"filename" doc:"path of the CSV file to read"`
	Loop     bool   `yaml:"loop,omitempty" json:"loop,omitempty" doc:"rewind and replay the file on end-of-file"`
}

// SourceKafka consumes JSON records from a Kafka topic.
type SourceKafka struct {
	Brokers []string `yaml:"brokers" json:"brokers" doc:"list of broker addresses"`
	Topic   string   `yaml:"topic" json:"topic" doc:"topic to consume"`
	GroupID string   `yaml:"groupId,omitempty" json:"groupId,omitempty" doc:"consumer group id"`
}

// SinkStdout writes emitted batches to standard output.
type SinkStdout struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty" doc:"output format, one of: json, text"`
}

// SinkKafka produces emitted batches to a Kafka topic.
type SinkKafka struct {
	Address      string `yaml:"address" json:"address" doc:"broker address"`
	Topic        string `yaml:"topic" json:"topic" doc:"topic to produce to"`
	WriteTimeout int64  `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty" doc:"write timeout in seconds"`
}
