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
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/metrics"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

var _ metrics.MonitoringService = (*MonitoringService)(nil)

func newTestService(t *testing.T) *MonitoringService {
	lc := logger.NewConfiguration(logger.Debug, "text", "")
	lc.ConsoleOutput = &bytes.Buffer{}

	p := NewMonitoringService("127.0.0.1:0", "us-east-1", logger.NewLogrusLoggerWithConfig(lc))
	require.NoError(t, p.Init("staging-KCLWorker", "orders", "worker-1"))
	return p
}

func TestCounters(t *testing.T) {
	p := newTestService(t)
	shard := "shardId-000000000001"

	p.IncrRecordsProcessed(shard, 3)
	p.IncrRecordsProcessed(shard, 2)
	p.IncrBytesProcessed(shard, 128)
	p.MillisBehindLatest(shard, 1500)
	p.LeaseGained(shard)
	p.IncrCheckpoints(shard)
	p.IncrCheckpointFailures(shard)
	p.IncrCheckpointFailures(shard)
	p.RecordProcessRecordsTime(shard, 20)

	assert.Equal(t, float64(5), testutil.ToFloat64(p.processedRecords.With(p.labels(shard))))
	assert.Equal(t, float64(128), testutil.ToFloat64(p.processedBytes.With(p.labels(shard))))
	assert.Equal(t, 1.5, testutil.ToFloat64(p.behindLatestSeconds.With(p.labels(shard))))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.leasesHeld.With(p.labels(shard))))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.checkpoints.With(p.labels(shard))))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.checkpointFailures.With(p.labels(shard))))
	assert.Equal(t, 1, testutil.CollectAndCount(p.processRecordsSeconds))

	p.LeaseLost(shard)
	assert.Equal(t, float64(0), testutil.ToFloat64(p.leasesHeld.With(p.labels(shard))))
}

func TestInitSanitizesNamespace(t *testing.T) {
	p := newTestService(t)
	assert.Equal(t, "staging_KCLWorker", p.namespace)

	// registering the same collectors twice fails
	assert.Error(t, p.Init("staging-KCLWorker", "orders", "worker-1"))
}

func TestServeMetrics(t *testing.T) {
	p := newTestService(t)
	require.NoError(t, p.Start())
	defer p.Shutdown()

	p.IncrRecordsProcessed("shardId-000000000001", 1)

	resp, err := http.Get("http://" + p.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `staging_KCLWorker_processed_records{kinesisStream="orders",region="us-east-1",shard="shardId-000000000001",workerID="worker-1"} 1`)
}

func TestStartFailsOnBadAddress(t *testing.T) {
	p := NewMonitoringService("256.0.0.1:-1", "us-east-1", logger.GetDefaultLogger())
	assert.Error(t, p.Start())
	p.Shutdown()
}
