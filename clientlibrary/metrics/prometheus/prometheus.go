/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */
package prometheus

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

const shutdownTimeout = 5 * time.Second

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// MonitoringService publishes record processor metrics to Prometheus. It uses its own registry and
// HTTP server, so it does not clash with a service that already exposes the default registry.
type MonitoringService struct {
	listenAddress string
	namespace     string
	streamName    string
	workerID      string
	region        string
	logger        logger.Logger

	registry *prom.Registry
	server   *http.Server
	listener net.Listener

	processedRecords      *prom.CounterVec
	processedBytes        *prom.CounterVec
	behindLatestSeconds   *prom.GaugeVec
	leasesHeld            *prom.GaugeVec
	checkpoints           *prom.CounterVec
	checkpointFailures    *prom.CounterVec
	processRecordsSeconds *prom.HistogramVec
}

// NewMonitoringService returns a Monitoring service publishing metrics to Prometheus.
func NewMonitoringService(listenAddress, region string, logger logger.Logger) *MonitoringService {
	return &MonitoringService{
		listenAddress: listenAddress,
		region:        region,
		logger:        logger,
		registry:      prom.NewRegistry(),
	}
}

// Registry exposes the collectors, mainly for unit testing.
func (p *MonitoringService) Registry() *prom.Registry {
	return p.registry
}

// Addr is the bound listen address once Start returned.
func (p *MonitoringService) Addr() string {
	if p.listener == nil {
		return p.listenAddress
	}
	return p.listener.Addr().String()
}

func (p *MonitoringService) Init(appName, streamName, workerID string) error {
	p.namespace = invalidNameChars.ReplaceAllString(appName, "_")
	p.streamName = streamName
	p.workerID = workerID

	constLabels := prom.Labels{"region": p.region, "workerID": p.workerID}

	p.processedBytes = prom.NewCounterVec(prom.CounterOpts{
		Namespace:   p.namespace,
		Name:        "processed_bytes",
		Help:        "Number of bytes processed",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})
	p.processedRecords = prom.NewCounterVec(prom.CounterOpts{
		Namespace:   p.namespace,
		Name:        "processed_records",
		Help:        "Number of records processed",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})
	p.behindLatestSeconds = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace:   p.namespace,
		Name:        "behind_latest_seconds",
		Help:        "The number of seconds processing is behind",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})
	p.leasesHeld = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace:   p.namespace,
		Name:        "leases_held",
		Help:        "The number of shards this processor was initialized for and not yet shut down",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})
	p.checkpoints = prom.NewCounterVec(prom.CounterOpts{
		Namespace:   p.namespace,
		Name:        "checkpoints",
		Help:        "The number of checkpoints acknowledged by the daemon",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})
	p.checkpointFailures = prom.NewCounterVec(prom.CounterOpts{
		Namespace:   p.namespace,
		Name:        "checkpoint_failures",
		Help:        "The number of checkpoints rejected by the daemon, including throttled attempts",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})
	p.processRecordsSeconds = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace:   p.namespace,
		Name:        "process_records_duration_seconds",
		Help:        "The time taken to process records",
		ConstLabels: constLabels,
	}, []string{"kinesisStream", "shard"})

	metrics := []prom.Collector{
		p.processedBytes,
		p.processedRecords,
		p.behindLatestSeconds,
		p.leasesHeld,
		p.checkpoints,
		p.checkpointFailures,
		p.processRecordsSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, metric := range metrics {
		err := p.registry.Register(metric)
		if err != nil {
			return err
		}
	}

	return nil
}

// Start binds the listen address and serves /metrics in the background. A bind failure is
// returned to the caller.
func (p *MonitoringService) Start() error {
	ln, err := net.Listen("tcp", p.listenAddress)
	if err != nil {
		return err
	}
	p.listener = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}))
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		p.logger.Infof("Starting Prometheus listener on %s", ln.Addr())
		err := p.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Errorf("Error serving Prometheus metrics endpoint. %+v", err)
		}
		p.logger.Infof("Stopped metrics server")
	}()

	return nil
}

func (p *MonitoringService) Shutdown() {
	if p.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.server.Shutdown(ctx); err != nil {
		p.logger.Warnf("Error stopping Prometheus metrics endpoint. %+v", err)
	}
}

func (p *MonitoringService) labels(shard string) prom.Labels {
	return prom.Labels{"shard": shard, "kinesisStream": p.streamName}
}

func (p *MonitoringService) IncrRecordsProcessed(shard string, count int) {
	p.processedRecords.With(p.labels(shard)).Add(float64(count))
}

func (p *MonitoringService) IncrBytesProcessed(shard string, count int64) {
	p.processedBytes.With(p.labels(shard)).Add(float64(count))
}

func (p *MonitoringService) MillisBehindLatest(shard string, millis float64) {
	p.behindLatestSeconds.With(p.labels(shard)).Set(millis / 1000)
}

func (p *MonitoringService) LeaseGained(shard string) {
	p.leasesHeld.With(p.labels(shard)).Inc()
}

func (p *MonitoringService) LeaseLost(shard string) {
	p.leasesHeld.With(p.labels(shard)).Dec()
}

func (p *MonitoringService) IncrCheckpoints(shard string) {
	p.checkpoints.With(p.labels(shard)).Inc()
}

func (p *MonitoringService) IncrCheckpointFailures(shard string) {
	p.checkpointFailures.With(p.labels(shard)).Inc()
}

func (p *MonitoringService) RecordProcessRecordsTime(shard string, millis float64) {
	p.processRecordsSeconds.With(p.labels(shard)).Observe(millis / 1000)
}
