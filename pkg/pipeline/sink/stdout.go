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

package sink

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type stdoutSink struct {
	format string
}

// Write prints each record of the batch, one line per record.
func (s *stdoutSink) Write(b *dataset.Batch) error {
	log.Debugf("entering stdoutSink Write, number of records = %d", b.Len())
	if s.format == "json" {
		for _, r := range b.Records {
			txt, _ := json.Marshal(r)
			fmt.Println(string(txt))
		}
	} else {
		for _, r := range b.Records {
			fmt.Printf("%s: %v\n", time.Now().Format(time.StampMilli), r)
		}
	}
	return nil
}

// NewStdoutSink creates a sink printing batches to standard output.
func NewStdoutSink(params *api.SinkStdout) Sink {
	log.Debugf("entering NewStdoutSink")
	format := ""
	if params != nil {
		format = params.Format
	}
	return &stdoutSink{format: format}
}
