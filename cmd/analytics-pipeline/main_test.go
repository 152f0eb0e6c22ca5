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

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/insightops/analytics-pipeline/pkg/config"
	"github.com/insightops/analytics-pipeline/pkg/engine"
	"github.com/insightops/analytics-pipeline/pkg/pipeline"
	"github.com/insightops/analytics-pipeline/pkg/pipeline/sink"
	"github.com/insightops/analytics-pipeline/pkg/pipeline/source"
)

func TestStreamConfigSetup(t *testing.T) {
	js := `{
    "Stream": "{\"preprocessingSteps\":[\"drop_missing\",\"standardize\"],\"validationRules\":{\"sensors\":{\"type\":\"required_columns\",\"parameters\":{\"columns\":[\"sensor_value_1\"]}}},\"batchSize\":500,\"queueCapacity\":1000}",
    "Model": "{\"nEstimators\":20,\"crossValidationFolds\":3,\"maxDepth\":4,\"learningRate\":0.05,\"featureSelectionThreshold\":0.95,\"anomalyDetectionThreshold\":2.5}",
    "Source": "{\"type\":\"synthetic\",\"synthetic\":{\"batches\":2,\"recordsPerBatch\":100}}",
    "Sink": "{\"type\":\"none\"}",
    "Health": {
        "Port": "8080"
    },
    "Profile": {
        "Port": 0
    }
}`
	var opts config.Options
	err := json.Unmarshal([]byte(js), &opts)
	require.NoError(t, err)
	cfg, err := config.ParseConfig(&opts)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	processor, err := pipeline.NewProcessor(cfg.Stream, nil)
	require.NoError(t, err)
	require.NotNil(t, processor)

	src, err := source.NewDataSource(&cfg.Source, cfg.Stream.BatchSize)
	require.NoError(t, err)
	require.NotNil(t, src)

	out, err := sink.NewSink(&cfg.Sink)
	require.NoError(t, err)
	require.NotNil(t, out)

	eng, err := engine.NewEngine(cfg.Model, nil)
	require.NoError(t, err)
	require.NotNil(t, eng)
}

func TestBadStreamConfigRejected(t *testing.T) {
	var opts config.Options
	opts.Stream = `{"preprocessingSteps":["no_such_step"]}`
	cfg, err := config.ParseConfig(&opts)
	require.NoError(t, err)
	_, err = pipeline.NewProcessor(cfg.Stream, nil)
	require.Error(t, err)
}
