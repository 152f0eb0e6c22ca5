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

package operational

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/config"
)

type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// MetricDefinition declares an operational metric before instantiation, so the
// full metric surface can be documented from one place.
type MetricDefinition struct {
	Name   string
	Help   string
	Type   MetricType
	Labels []string
}

var allMetrics = []MetricDefinition{}

// DefineMetric registers a metric definition at package init time.
func DefineMetric(name, help string, t MetricType, labels ...string) MetricDefinition {
	def := MetricDefinition{
		Name:   name,
		Help:   help,
		Type:   t,
		Labels: labels,
	}
	allMetrics = append(allMetrics, def)
	return def
}

// GetDocumentation renders the markdown documentation of every defined metric.
func GetDocumentation() string {
	doc := ""
	for _, opts := range allMetrics {
		doc += fmt.Sprintf(
			`
### %s
| **Name** | %s |
|:---|:---|
| **Description** | %s |
| **Type** | %s |
| **Labels** | %v |

`,
			opts.Name,
			opts.Name,
			opts.Help,
			opts.Type,
			opts.Labels,
		)
	}
	return doc
}

// Metrics instantiates prometheus collectors from definitions, applying the
// configured name prefix and tolerating duplicate registration in tests.
type Metrics struct {
	settings *config.Metrics
}

func NewMetrics(settings *config.Metrics) *Metrics {
	if settings == nil {
		settings = &config.Metrics{}
	}
	return &Metrics{settings: settings}
}

func (o *Metrics) prefixed(name string) string {
	return o.settings.Prefix + name
}

func verifyType(def *MetricDefinition, t MetricType) {
	if def.Type != t {
		log.Panicf("operational metric %q defined as %s but instantiated as %s", def.Name, def.Type, t)
	}
}

func (o *Metrics) register(c prometheus.Collector, name string) {
	if err := prometheus.DefaultRegisterer.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			log.Debugf("metric %s already registered", name)
			return
		}
		log.Errorf("metric %s cannot be registered: %v", name, err)
	}
}

func (o *Metrics) NewCounter(def *MetricDefinition) prometheus.Counter {
	verifyType(def, TypeCounter)
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: o.prefixed(def.Name), Help: def.Help})
	o.register(c, def.Name)
	return c
}

func (o *Metrics) NewCounterVec(def *MetricDefinition) *prometheus.CounterVec {
	verifyType(def, TypeCounter)
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: o.prefixed(def.Name), Help: def.Help}, def.Labels)
	o.register(c, def.Name)
	return c
}

func (o *Metrics) NewGauge(def *MetricDefinition) prometheus.Gauge {
	verifyType(def, TypeGauge)
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: o.prefixed(def.Name), Help: def.Help})
	o.register(g, def.Name)
	return g
}

func (o *Metrics) NewGaugeVec(def *MetricDefinition) *prometheus.GaugeVec {
	verifyType(def, TypeGauge)
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: o.prefixed(def.Name), Help: def.Help}, def.Labels)
	o.register(g, def.Name)
	return g
}

func (o *Metrics) NewHistogram(def *MetricDefinition, buckets []float64) prometheus.Histogram {
	verifyType(def, TypeHistogram)
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: o.prefixed(def.Name), Help: def.Help, Buckets: buckets})
	o.register(h, def.Name)
	return h
}
