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

package operational

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightops/analytics-pipeline/pkg/config"
)

func TestDefinedMetricsAreDocumented(t *testing.T) {
	def := DefineMetric("test_metric_documented", "A metric defined for the documentation test", TypeCounter, "label")
	assert.Equal(t, "test_metric_documented", def.Name)
	doc := GetDocumentation()
	assert.Contains(t, doc, "test_metric_documented")
	assert.Contains(t, doc, "A metric defined for the documentation test")
}

func TestMetricsApplyPrefix(t *testing.T) {
	def := DefineMetric("test_metric_prefixed", "prefix test", TypeGauge)
	m := NewMetrics(&config.Metrics{Prefix: "unit_"})
	g := m.NewGauge(&def)
	require.NotNil(t, g)
	g.Set(10)
	assert.Equal(t, "unit_test_metric_prefixed", m.prefixed(def.Name))
}

func TestDuplicateRegistrationTolerated(t *testing.T) {
	def := DefineMetric("test_metric_duplicated", "duplicate registration test", TypeCounter)
	m := NewMetrics(nil)
	c1 := m.NewCounter(&def)
	c2 := m.NewCounter(&def)
	require.NotNil(t, c1)
	require.NotNil(t, c2)
	c1.Inc()
	c2.Inc()
}
