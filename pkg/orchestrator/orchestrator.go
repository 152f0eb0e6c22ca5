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

// Package orchestrator ties the engine, the dataset providers and the health
// checks together and runs complete analysis cycles.
package orchestrator

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/config"
	"github.com/insightops/analytics-pipeline/pkg/engine"
	"github.com/insightops/analytics-pipeline/pkg/operational"
	"github.com/insightops/analytics-pipeline/pkg/provider"
)

var olog = logrus.WithField("component", "orchestrator.Orchestrator")

// State of the orchestrator. Only OPERATIONAL accepts analysis runs.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateInitializing  State = "INITIALIZING"
	StateOperational   State = "OPERATIONAL"
	StateFailed        State = "FAILED"
)

// SystemNotReadyError rejects an analysis run started before a successful
// initialization.
type SystemNotReadyError struct {
	State State
}

func (e *SystemNotReadyError) Error() string {
	return "system not ready for analysis, state is " + string(e.State)
}

// NamedCheck is one health check of the initialization sequence.
type NamedCheck struct {
	Name  string
	Check healthcheck.Check
}

var (
	analysisRuns = operational.DefineMetric(
		"orchestrator_analysis_runs_total",
		"Counter of analysis runs by result",
		operational.TypeCounter,
		"result",
	)
	stateGauge = operational.DefineMetric(
		"orchestrator_operational",
		"1 when the orchestrator is OPERATIONAL, 0 otherwise",
		operational.TypeGauge,
	)
)

// Orchestrator owns the system state machine and composes analysis reports.
type Orchestrator struct {
	cfg    config.ConfigFileStruct
	eng    engine.Engine
	prov   provider.DatasetProvider
	clk    clock.Clock
	checks []NamedCheck

	mu    sync.Mutex
	state State

	runs        *prometheus.CounterVec
	operational prometheus.Gauge
}

// NewOrchestrator wires the orchestrator with its collaborators. A nil checks
// slice installs the default check sequence.
func NewOrchestrator(cfg config.ConfigFileStruct, eng engine.Engine, prov provider.DatasetProvider,
	opMetrics *operational.Metrics, checks []NamedCheck) (*Orchestrator, error) {
	if eng == nil {
		return nil, errors.New("orchestrator needs an engine")
	}
	if prov == nil {
		return nil, errors.New("orchestrator needs a dataset provider")
	}
	if opMetrics == nil {
		opMetrics = operational.NewMetrics(nil)
	}
	o := &Orchestrator{
		cfg:         cfg,
		eng:         eng,
		prov:        prov,
		clk:         clock.New(),
		state:       StateUninitialized,
		runs:        opMetrics.NewCounterVec(&analysisRuns),
		operational: opMetrics.NewGauge(&stateGauge),
	}
	if checks == nil {
		checks = o.defaultChecks()
	}
	o.checks = checks
	return o, nil
}

// WithClock substitutes the clock, so tests control report timestamps.
func (o *Orchestrator) WithClock(clk clock.Clock) *Orchestrator {
	o.clk = clk
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Initialize runs the health check sequence and loads the configuration.
// Calling it again from OPERATIONAL is a no-op returning true; calling it
// again from FAILED retries from scratch.
func (o *Orchestrator) Initialize() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateOperational {
		return true
	}
	o.state = StateInitializing
	o.operational.Set(0)
	olog.Info("initializing analytics system")

	for _, c := range o.checks {
		if err := c.Check(); err != nil {
			olog.Errorf("health check %s failed: %v", c.Name, err)
			o.state = StateFailed
			return false
		}
		olog.Debugf("health check %s passed", c.Name)
	}

	if err := config.Validate(&o.cfg); err != nil {
		olog.Errorf("configuration rejected: %v", err)
		o.state = StateFailed
		return false
	}

	o.state = StateOperational
	o.operational.Set(1)
	olog.Info("all subsystems operational")
	return true
}

// Live is the liveness probe: the process is alive as long as it answers.
func (o *Orchestrator) Live() healthcheck.Check {
	return func() error { return nil }
}

// Ready is the readiness probe: ready only when OPERATIONAL.
func (o *Orchestrator) Ready() healthcheck.Check {
	return func() error {
		if o.State() != StateOperational {
			return &SystemNotReadyError{State: o.State()}
		}
		return nil
	}
}

// RunAnalysis acquires a dataset from the provider, runs train, predict and
// detect in that order, and assembles the report. It fails with
// SystemNotReadyError unless the orchestrator is OPERATIONAL; any later
// failure discards the partial report.
func (o *Orchestrator) RunAnalysis(ctx context.Context, sourceID string) (*AnalysisReport, error) {
	if s := o.State(); s != StateOperational {
		return nil, &SystemNotReadyError{State: s}
	}
	olog.Infof("starting analysis on data source %s", sourceID)

	ds, err := o.prov.GetDataset(ctx, sourceID)
	if err != nil {
		o.runs.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(err, "acquiring dataset %s", sourceID)
	}

	metrics, err := o.eng.Train(ctx, ds, o.cfg.Model)
	if err != nil {
		o.runs.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "training")
	}

	features := ds.NumericMatrix(ds.NumericColumns())
	predictions, err := o.eng.PredictBatch(ctx, features)
	if err != nil {
		o.runs.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "predicting")
	}

	anomalies, err := o.eng.DetectAnomalies(ctx, ds)
	if err != nil {
		o.runs.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "detecting anomalies")
	}

	report := o.composeReport(sourceID, ds.Len(), metrics, len(predictions.Predictions), anomalies)
	o.runs.WithLabelValues("success").Inc()
	olog.Infof("analysis completed, samples=%d anomalies=%d", report.SamplesProcessed, report.AnomaliesDetected)
	return report, nil
}
