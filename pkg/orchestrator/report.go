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

package orchestrator

import (
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/insightops/analytics-pipeline/pkg/config"
	"github.com/insightops/analytics-pipeline/pkg/engine"
)

// AnalysisReport aggregates the outcome of one analysis run.
type AnalysisReport struct {
	ID                   string                  `json:"id"`
	Timestamp            time.Time               `json:"timestamp"`
	DataSource           string                  `json:"dataSource"`
	SamplesProcessed     int                     `json:"samplesProcessed"`
	ModelPerformance     *engine.TrainingMetrics `json:"modelPerformance"`
	PredictionsGenerated int                     `json:"predictionsGenerated"`
	AnomaliesDetected    int                     `json:"anomaliesDetected"`
	Anomalies            []engine.AnomalyRecord  `json:"anomalies,omitempty"`
	SystemHealth         map[string]float64      `json:"systemHealth"`
	Recommendations      []string                `json:"recommendations"`
	AdvantageFactor      float64                 `json:"advantageFactor"`
	ProcessingEfficiency float64                 `json:"processingEfficiency"`
}

var baselineRecommendations = []string{
	"Implement enhanced monitoring for high-risk patterns",
	"Provision additional workers for improved processing capacity",
	"Tune the model hyperparameters for reduced prediction latency",
	"Review anomaly detection thresholds against the current baseline",
}

const urgentRecommendation = "URGENT: investigate potential incident, anomaly count exceeds threshold"

// GenerateRecommendations is a pure function of the anomaly count: the fixed
// baseline set, plus one urgent entry if and only if the count exceeds the
// threshold.
func GenerateRecommendations(anomalyCount, urgentThreshold int) []string {
	out := make([]string, len(baselineRecommendations), len(baselineRecommendations)+1)
	copy(out, baselineRecommendations)
	if anomalyCount > urgentThreshold {
		out = append(out, urgentRecommendation)
	}
	return out
}

func (o *Orchestrator) composeReport(sourceID string, samples int, metrics *engine.TrainingMetrics,
	predictions int, anomalies []engine.AnomalyRecord) *AnalysisReport {
	threshold := o.cfg.UrgentAnomalyThreshold
	if threshold == 0 {
		threshold = config.DefaultUrgentAnomalyThreshold
	}
	advantage := 1.0
	if metrics != nil && metrics.SpeedupFactor > 0 {
		advantage = metrics.SpeedupFactor
	}
	efficiency := 0.0
	if samples > 0 {
		efficiency = float64(predictions) / float64(samples)
		if efficiency > 1 {
			efficiency = 1
		}
	}
	return &AnalysisReport{
		ID:                   uuid.NewString(),
		Timestamp:            o.clk.Now(),
		DataSource:           sourceID,
		SamplesProcessed:     samples,
		ModelPerformance:     metrics,
		PredictionsGenerated: predictions,
		AnomaliesDetected:    len(anomalies),
		Anomalies:            anomalies,
		SystemHealth:         systemHealth(),
		Recommendations:      GenerateRecommendations(len(anomalies), threshold),
		AdvantageFactor:      advantage,
		ProcessingEfficiency: efficiency,
	}
}

// systemHealth samples process level runtime gauges.
func systemHealth() map[string]float64 {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return map[string]float64{
		"goroutines":      float64(runtime.NumGoroutine()),
		"heap_alloc_mb":   float64(mem.HeapAlloc) / (1024 * 1024),
		"heap_objects":    float64(mem.HeapObjects),
		"gc_cycles":       float64(mem.NumGC),
		"cpu_cores":       float64(runtime.NumCPU()),
		"max_parallelism": float64(runtime.GOMAXPROCS(0)),
	}
}
