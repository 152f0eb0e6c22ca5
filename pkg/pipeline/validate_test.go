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

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

func newTestProcessor(t *testing.T, cfg api.StreamConfig) *Processor {
	t.Helper()
	p, err := NewProcessor(cfg, nil)
	require.NoError(t, err)
	return p
}

func TestUnknownValidationRuleFailsFast(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"bogus": {Type: "no_such_rule"},
	}
	_, err := NewProcessor(cfg, nil)
	require.Error(t, err)
	var unknown *UnknownValidationRuleError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "bogus", unknown.Rule)
}

func TestMalformedExpressionFailsFast(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"expr": {Type: api.RuleExpression, Parameters: map[string]interface{}{"expression": "((("}},
	}
	_, err := NewProcessor(cfg, nil)
	require.Error(t, err)
}

func TestRequiredColumnsRule(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"cols": {Type: api.RuleRequiredColumns, Parameters: map[string]interface{}{"columns": []string{"a", "b"}}},
	}
	p := newTestProcessor(t, cfg)

	pass := dataset.NewBatch([]dataset.Record{{"a": 1.0, "b": 2.0}})
	fail := dataset.NewBatch([]dataset.Record{{"a": 1.0}})
	assert.True(t, p.validate(pass))
	assert.False(t, p.validate(fail))
}

func TestNumericRangeRule(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"range": {Type: api.RuleNumericRange, Parameters: map[string]interface{}{
			"column": "v", "min": 0.0, "max": 100.0,
		}},
	}
	p := newTestProcessor(t, cfg)

	assert.True(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": 50.0}})))
	assert.False(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": 101.0}})))
	// non numeric cells are not this rule's concern
	assert.True(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": "oops"}})))
}

func TestNumericRangeRuleNeedsColumn(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"range": {Type: api.RuleNumericRange, Parameters: map[string]interface{}{"min": 0.0}},
	}
	_, err := NewProcessor(cfg, nil)
	require.Error(t, err)
}

func TestMaxMissingRatioRule(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"missing": {Type: api.RuleMaxMissingRatio, Parameters: map[string]interface{}{"ratio": 0.25}},
	}
	p := newTestProcessor(t, cfg)

	ok := dataset.NewBatch([]dataset.Record{
		{"v": 1.0}, {"v": 2.0}, {"v": 3.0}, {"v": 4.0},
	})
	tooSparse := dataset.NewBatch([]dataset.Record{
		{"v": 1.0}, {"v": nil}, {"v": nil}, {"v": 4.0},
	})
	assert.True(t, p.validate(ok))
	assert.False(t, p.validate(tooSparse))
}

func TestExpressionRule(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"positive": {Type: api.RuleExpression, Parameters: map[string]interface{}{"expression": "v > 0"}},
	}
	p := newTestProcessor(t, cfg)

	assert.True(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": 1.0}, {"v": 2.0}})))
	assert.False(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": 1.0}, {"v": -2.0}})))
}

func TestAllRulesMustPass(t *testing.T) {
	cfg := api.DefaultStreamConfig()
	cfg.ValidationRules = map[string]api.ValidationRule{
		"cols":     {Type: api.RuleRequiredColumns, Parameters: map[string]interface{}{"columns": []string{"v"}}},
		"positive": {Type: api.RuleExpression, Parameters: map[string]interface{}{"expression": "v > 0"}},
	}
	p := newTestProcessor(t, cfg)

	assert.True(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": 1.0}})))
	// first rule passes, second fails
	assert.False(t, p.validate(dataset.NewBatch([]dataset.Record{{"v": -1.0}})))
}
