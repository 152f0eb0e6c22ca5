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

package engine

import (
	"sort"
	"time"
)

// BuildAnomalyRecords converts per-row anomaly scores into records, keeping
// only rows whose score strictly exceeds the threshold. The filter is monotone
// in the threshold: a higher threshold never yields more records.
func BuildAnomalyRecords(scores []float64, contributors [][]string, threshold float64, now time.Time) []AnomalyRecord {
	records := []AnomalyRecord{}
	for i, score := range scores {
		if score <= threshold {
			continue
		}
		var features []string
		if i < len(contributors) {
			features = contributors[i]
		}
		records = append(records, AnomalyRecord{
			Timestamp:  now,
			Index:      i,
			Score:      score,
			Confidence: scoreConfidence(score),
			RiskLevel:  riskLevel(score, threshold),
			Features:   features,
		})
	}
	return records
}

// scoreConfidence maps an unbounded positive score into [0,1); asymptotic so
// larger deviations always read as more certain.
func scoreConfidence(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return 1 - 1/(1+score)
}

func riskLevel(score, threshold float64) RiskLevel {
	switch {
	case score >= 2*threshold:
		return RiskHigh
	case score >= 1.5*threshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// topContributors returns up to limit feature names ordered by decreasing deviation.
func topContributors(deviations map[string]float64, limit int) []string {
	names := make([]string, 0, len(deviations))
	for name := range deviations {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		if deviations[names[a]] == deviations[names[b]] {
			return names[a] < names[b]
		}
		return deviations[names[a]] > deviations[names[b]]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}
