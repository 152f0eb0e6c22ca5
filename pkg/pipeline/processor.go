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

package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/insightops/analytics-pipeline/pkg/api"
	"github.com/insightops/analytics-pipeline/pkg/dataset"
	"github.com/insightops/analytics-pipeline/pkg/operational"
	"github.com/insightops/analytics-pipeline/pkg/pipeline/sink"
	"github.com/insightops/analytics-pipeline/pkg/pipeline/source"
)

var plog = logrus.WithField("component", "pipeline.Processor")

// BatchState tracks where a batch currently is in the processing sequence.
type BatchState string

const (
	BatchReceiving    BatchState = "RECEIVING"
	BatchValidating   BatchState = "VALIDATING"
	BatchRecovering   BatchState = "RECOVERING"
	BatchSecuring     BatchState = "SECURING"
	BatchTransforming BatchState = "TRANSFORMING"
	BatchEmitted      BatchState = "EMITTED"
)

// StreamState is the state of the whole loop. CLOSED is terminal.
type StreamState string

const (
	StreamIdle    StreamState = "IDLE"
	StreamRunning StreamState = "RUNNING"
	StreamClosed  StreamState = "CLOSED"
)

var (
	batchesProcessed = operational.DefineMetric(
		"stream_batches_processed_total",
		"Counter of batches emitted by the stream loop",
		operational.TypeCounter,
	)
	samplesProcessed = operational.DefineMetric(
		"stream_samples_processed_total",
		"Counter of records emitted by the stream loop",
		operational.TypeCounter,
	)
	batchesRecovered = operational.DefineMetric(
		"stream_batches_recovered_total",
		"Counter of batches repaired after failed validation",
		operational.TypeCounter,
	)
	batchesDropped = operational.DefineMetric(
		"stream_batches_dropped_total",
		"Counter of batches dropped by per batch error handling",
		operational.TypeCounter,
		"reason",
	)
	queueLength = operational.DefineMetric(
		"stream_queue_length",
		"Number of batches waiting in the bounded ingestion queue",
		operational.TypeGauge,
	)
)

// Progress is a read only snapshot of the loop counters.
type Progress struct {
	BatchesProcessed int64
	SamplesProcessed int64
	BatchesRecovered int64
	BatchesDropped   int64
	State            StreamState
}

// Processor runs the stream loop: it pulls batches from a source through a
// bounded queue and takes each one through validate, recover, secure and
// transform before handing it to the sink. Batches are processed strictly in
// arrival order, one at a time.
type Processor struct {
	cfg       api.StreamConfig
	rules     []namedRule
	steps     []stepFunc
	encryptor Encryptor

	// oversize source batches are split, the remainder waits here
	pending []*dataset.Batch

	state atomic.Value // StreamState

	processedBatches atomic.Int64
	processedSamples atomic.Int64
	recoveredBatches atomic.Int64
	droppedBatches   atomic.Int64

	metBatches   prometheus.Counter
	metSamples   prometheus.Counter
	metRecovered prometheus.Counter
	metDropped   *prometheus.CounterVec
	metQueueLen  prometheus.Gauge
}

// NewProcessor compiles the validation rules and preprocessing steps of the
// configuration. Unknown rule or step names fail here, not per batch.
func NewProcessor(cfg api.StreamConfig, opMetrics *operational.Metrics) (*Processor, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = api.DefaultStreamConfig().BatchSize
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = api.DefaultStreamConfig().QueueCapacity
	}
	rules, err := buildRules(cfg.ValidationRules)
	if err != nil {
		return nil, err
	}
	steps, err := resolveSteps(cfg.PreprocessingSteps)
	if err != nil {
		return nil, err
	}
	if opMetrics == nil {
		opMetrics = operational.NewMetrics(nil)
	}
	plog.Infof("new processor, batchSize=%d queueCapacity=%d rules=%d steps=%d",
		cfg.BatchSize, cfg.QueueCapacity, len(rules), len(steps))
	p := &Processor{
		cfg:          cfg,
		rules:        rules,
		steps:        steps,
		encryptor:    NewNoopEncryptor(),
		metBatches:   opMetrics.NewCounter(&batchesProcessed),
		metSamples:   opMetrics.NewCounter(&samplesProcessed),
		metRecovered: opMetrics.NewCounter(&batchesRecovered),
		metDropped:   opMetrics.NewCounterVec(&batchesDropped),
		metQueueLen:  opMetrics.NewGauge(&queueLength),
	}
	p.state.Store(StreamIdle)
	return p, nil
}

// WithEncryptor substitutes the encryption hook. The default is a no-op.
func (p *Processor) WithEncryptor(e Encryptor) *Processor {
	p.encryptor = e
	return p
}

// State returns the current loop state.
func (p *Processor) State() StreamState {
	return p.state.Load().(StreamState)
}

// Progress returns a snapshot of the loop counters.
func (p *Processor) Progress() Progress {
	return Progress{
		BatchesProcessed: p.processedBatches.Load(),
		SamplesProcessed: p.processedSamples.Load(),
		BatchesRecovered: p.recoveredBatches.Load(),
		BatchesDropped:   p.droppedBatches.Load(),
		State:            p.State(),
	}
}

// ReceiveNextBatch pulls the next batch from the source, splitting batches
// larger than the configured batch size. It returns nil on end-of-stream.
func (p *Processor) ReceiveNextBatch(ctx context.Context, src source.DataSource) (*dataset.Batch, error) {
	if len(p.pending) > 0 {
		b := p.pending[0]
		p.pending = p.pending[1:]
		return b, nil
	}
	b, err := src.NextBatch(ctx)
	if err != nil || b == nil {
		return nil, err
	}
	if b.Len() > p.cfg.BatchSize {
		parts := dataset.Split(b.Records, p.cfg.BatchSize)
		p.pending = parts[1:]
		return parts[0], nil
	}
	return b, nil
}

// Run executes the loop until the source signals end-of-stream, the context
// is canceled or the stop channel closes. A producer goroutine feeds the
// bounded queue and blocks when it is full, so a slow consumer backpressures
// the source instead of dropping data. Per batch errors are logged and the
// loop moves on; a drained stream still fails when the dropped fraction ends
// up above cfg.ErrorTolerance.
func (p *Processor) Run(ctx context.Context, src source.DataSource, out sink.Sink, stop <-chan struct{}) error {
	p.state.Store(StreamRunning)
	queue := make(chan *dataset.Batch, p.cfg.QueueCapacity)

	go func() {
		defer close(queue)
		for {
			b, err := p.ReceiveNextBatch(ctx, src)
			if err != nil {
				plog.Errorf("receive error, closing stream: %v", err)
				return
			}
			if b == nil {
				plog.Debug("end-of-stream sentinel received")
				return
			}
			select {
			case queue <- b:
				p.metQueueLen.Set(float64(len(queue)))
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	for {
		select {
		case b, ok := <-queue:
			if !ok {
				p.state.Store(StreamClosed)
				plog.Infof("stream closed, batches=%d samples=%d recovered=%d dropped=%d",
					p.processedBatches.Load(), p.processedSamples.Load(),
					p.recoveredBatches.Load(), p.droppedBatches.Load())
				return p.checkErrorTolerance()
			}
			p.metQueueLen.Set(float64(len(queue)))
			p.processBatch(b, out)
		case <-ctx.Done():
			p.state.Store(StreamClosed)
			return ctx.Err()
		case <-stop:
			p.state.Store(StreamClosed)
			return nil
		}
	}
}

// processBatch takes one batch through the full state sequence. Every exit
// path besides EMITTED drops the batch; a panic in a step or a rule is
// contained the same way.
func (p *Processor) processBatch(b *dataset.Batch, out sink.Sink) {
	state := BatchReceiving
	defer func() {
		if r := recover(); r != nil {
			plog.Errorf("panic while processing batch in state %s, dropping: %v", state, r)
			p.drop("panic")
		}
	}()

	state = BatchValidating
	if !p.validate(b) {
		state = BatchRecovering
		repaired, err := Recover(b)
		if err != nil {
			plog.Errorf("cannot recover batch, dropping: %v", err)
			p.drop("unrecoverable")
			return
		}
		if !p.validate(repaired) {
			plog.Error("batch still invalid after recovery, dropping")
			p.drop("invalid")
			return
		}
		p.recoveredBatches.Add(1)
		p.metRecovered.Inc()
		b = repaired
	}

	state = BatchSecuring
	secured, err := p.secure(b)
	if err != nil {
		plog.Errorf("securing failed, dropping batch: %v", err)
		p.drop("secure")
		return
	}

	state = BatchTransforming
	transformed := p.applyRules(secured)

	if err := out.Write(transformed); err != nil {
		plog.Errorf("sink error, dropping batch: %v", err)
		p.drop("sink")
		return
	}

	state = BatchEmitted
	p.processedBatches.Add(1)
	p.processedSamples.Add(int64(transformed.Len()))
	p.metBatches.Inc()
	p.metSamples.Add(float64(transformed.Len()))
}

func (p *Processor) drop(reason string) {
	p.droppedBatches.Add(1)
	p.metDropped.WithLabelValues(reason).Inc()
}

// checkErrorTolerance turns a drained stream into an error when the dropped
// fraction of all batches seen ends up above cfg.ErrorTolerance.
func (p *Processor) checkErrorTolerance() error {
	dropped := p.droppedBatches.Load()
	total := p.processedBatches.Load() + dropped
	if total == 0 || float64(dropped)/float64(total) <= p.cfg.ErrorTolerance {
		return nil
	}
	return &ErrorToleranceExceededError{Dropped: dropped, Total: total, Tolerance: p.cfg.ErrorTolerance}
}
