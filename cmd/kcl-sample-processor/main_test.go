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
package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/metrics"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/metrics/prometheus"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/multilang"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

func TestLoggingRecordProcessor(t *testing.T) {
	logs := &bytes.Buffer{}
	lc := logger.NewConfiguration(logger.Debug, "text", "")
	lc.ConsoleOutput = logs
	log := logger.NewLogrusLoggerWithConfig(lc)

	procConfig := config.NewProcessorConfig("KCLWorker", "orders", "worker-1").WithLogger(log)
	input := strings.Join([]string{
		`{"action":"initialize","shardId":"shardId-000000000001"}`,
		`{"action":"processRecords","millisBehindLatest":0,"records":[]}`,
		`{"action":"processRecords","millisBehindLatest":5,"records":[{"data":"aGVsbG8=","partitionKey":"pk","sequenceNumber":"100"}]}`,
		`{"action":"checkpoint","sequenceNumber":"100"}`,
		`{"action":"leaseLost"}`,
	}, "\n")
	out := &bytes.Buffer{}

	err := multilang.NewConsumer(procConfig, &loggingRecordProcessor{log: log}).
		WithIO(strings.NewReader(input), out).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		`{"action":"status","responseFor":"initialize"}`,
		`{"action":"status","responseFor":"processRecords"}`,
		`{"action":"checkpoint","sequenceNumber":"100","subSequenceNumber":null}`,
		`{"action":"status","responseFor":"processRecords"}`,
		`{"action":"status","responseFor":"leaseLost"}`,
	}, "\n")+"\n", out.String())
	assert.Contains(t, logs.String(), "Checkpointing 1 records at 100")
	assert.Contains(t, logs.String(), "Shutdown reason: ZOMBIE")
}

func TestNewMonitoringService(t *testing.T) {
	procConfig := config.NewProcessorConfig("KCLWorker", "orders", "worker-1")
	assert.IsType(t, metrics.NoopMonitoringService{}, newMonitoringService(procConfig))

	procConfig.WithMetricsListenAddress("127.0.0.1:0")
	assert.IsType(t, &prometheus.MonitoringService{}, newMonitoringService(procConfig))
}
