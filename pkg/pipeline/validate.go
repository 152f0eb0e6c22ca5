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
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
)

var valLog = logrus.WithField("component", "pipeline.Validate")

// ruleFunc reports whether a batch satisfies one validation rule.
type ruleFunc func(*dataset.Batch) bool

type namedRule struct {
	name  string
	check ruleFunc
}

type requiredColumnsParams struct {
	Columns []string `mapstructure:"columns"`
}

type numericRangeParams struct {
	Column string  `mapstructure:"column"`
	Min    float64 `mapstructure:"min"`
	Max    float64 `mapstructure:"max"`
}

type maxMissingRatioParams struct {
	Ratio float64 `mapstructure:"ratio"`
}

type expressionParams struct {
	Expression string `mapstructure:"expression"`
}

// buildRules compiles the configured validation rules. Unknown rule types and
// malformed parameters fail here, at configuration validation time.
func buildRules(rules map[string]api.ValidationRule) ([]namedRule, error) {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]namedRule, 0, len(rules))
	for _, name := range names {
		rule := rules[name]
		check, err := compileRule(name, &rule)
		if err != nil {
			return nil, err
		}
		out = append(out, namedRule{name: name, check: check})
	}
	return out, nil
}

func compileRule(name string, rule *api.ValidationRule) (ruleFunc, error) {
	switch rule.Type {
	case api.RuleRequiredColumns:
		params := requiredColumnsParams{}
		if err := mapstructure.Decode(rule.Parameters, &params); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		return requiredColumnsRule(params.Columns), nil
	case api.RuleNumericRange:
		params := numericRangeParams{}
		if err := mapstructure.Decode(rule.Parameters, &params); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		if params.Column == "" {
			return nil, errors.Errorf("rule %s: column must be provided", name)
		}
		return numericRangeRule(params), nil
	case api.RuleMaxMissingRatio:
		params := maxMissingRatioParams{}
		if err := mapstructure.Decode(rule.Parameters, &params); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		return maxMissingRatioRule(params.Ratio), nil
	case api.RuleExpression:
		params := expressionParams{}
		if err := mapstructure.Decode(rule.Parameters, &params); err != nil {
			return nil, errors.Wrapf(err, "rule %s", name)
		}
		expression, err := govaluate.NewEvaluableExpression(params.Expression)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s: cannot parse expression %q", name, params.Expression)
		}
		return expressionRule(expression), nil
	default:
		return nil, &UnknownValidationRuleError{Rule: name, Type: string(rule.Type)}
	}
}

func requiredColumnsRule(columns []string) ruleFunc {
	return func(b *dataset.Batch) bool {
		for _, record := range b.Records {
			for _, col := range columns {
				if _, ok := record[col]; !ok {
					return false
				}
			}
		}
		return true
	}
}

func numericRangeRule(params numericRangeParams) ruleFunc {
	return func(b *dataset.Batch) bool {
		for _, record := range b.Records {
			v, ok := dataset.AsFloat(record[params.Column])
			if !ok {
				continue
			}
			if v < params.Min || v > params.Max {
				return false
			}
		}
		return true
	}
}

func maxMissingRatioRule(ratio float64) ruleFunc {
	return func(b *dataset.Batch) bool {
		if b.Len() == 0 {
			return true
		}
		ds := b.Dataset()
		cols := ds.Columns()
		if len(cols) == 0 {
			return true
		}
		missing := 0
		total := 0
		for _, record := range b.Records {
			for _, col := range cols {
				total++
				if dataset.IsMissing(record[col]) {
					missing++
				}
			}
		}
		return float64(missing)/float64(total) <= ratio
	}
}

func expressionRule(expression *govaluate.EvaluableExpression) ruleFunc {
	return func(b *dataset.Batch) bool {
		for _, record := range b.Records {
			result, err := expression.Evaluate(record)
			if err != nil {
				valLog.Debugf("expression evaluation failed: %v", err)
				return false
			}
			pass, ok := result.(bool)
			if !ok || !pass {
				return false
			}
		}
		return true
	}
}

// validate applies every configured rule; a batch passes only if all rules pass.
func (p *Processor) validate(b *dataset.Batch) bool {
	for _, rule := range p.rules {
		if !rule.check(b) {
			valLog.Debugf("batch failed validation rule %q", rule.name)
			return false
		}
	}
	return true
}
