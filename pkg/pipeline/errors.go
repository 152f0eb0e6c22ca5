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

import "fmt"

// UnrecoverableBatchError marks a batch whose recovery cannot proceed because
// one of its columns carries no valid value at all. The stream error handler
// drops the batch and keeps the loop running.
type UnrecoverableBatchError struct {
	Column string
}

func (e *UnrecoverableBatchError) Error() string {
	return fmt.Sprintf("batch cannot be recovered: column %q has no valid value", e.Column)
}

// ErrorToleranceExceededError reports a drained stream whose dropped-batch
// fraction ended up above the configured tolerance.
type ErrorToleranceExceededError struct {
	Dropped   int64
	Total     int64
	Tolerance float64
}

func (e *ErrorToleranceExceededError) Error() string {
	return fmt.Sprintf("dropped %d of %d batches, above the tolerated fraction %g", e.Dropped, e.Total, e.Tolerance)
}

// UnknownPreprocessingStepError rejects a configuration naming a step that is
// not registered. Raised when the processor is built, never per batch.
type UnknownPreprocessingStepError struct {
	Step string
}

func (e *UnknownPreprocessingStepError) Error() string {
	return fmt.Sprintf("`preprocessing` step %q not defined", e.Step)
}

// UnknownValidationRuleError rejects a configuration naming a rule type that
// is not registered. Raised when the processor is built, never per batch.
type UnknownValidationRuleError struct {
	Rule string
	Type string
}

func (e *UnknownValidationRuleError) Error() string {
	return fmt.Sprintf("validation rule %q: type %q not defined", e.Rule, e.Type)
}
