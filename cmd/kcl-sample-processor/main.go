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
// kcl-sample-processor is a record processor for the MultiLangDaemon. It logs every record,
// checkpoints after every batch and optionally exposes Prometheus metrics. Point
// EXECUTABLE_PATH at it to try a stream end to end.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	kcl "github.com/vmware/vmware-go-kcl-multilang/clientlibrary/interfaces"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/metrics"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/metrics/prometheus"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/multilang"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

type loggingRecordProcessor struct {
	log     logger.Logger
	shardID string
}

func (p *loggingRecordProcessor) Initialize(input *kcl.InitializationInput) error {
	p.shardID = input.ShardId
	p.log = p.log.WithFields(logger.Fields{"shard": input.ShardId})
	p.log.Infof("Processing shard %s from %s", input.ShardId, input.ExtendedSequenceNumber)
	return nil
}

func (p *loggingRecordProcessor) ProcessRecords(input *kcl.ProcessRecordsInput) error {
	if len(input.Records) == 0 {
		return nil
	}

	for _, r := range input.Records {
		p.log.Debugf("Record %s partitionKey=%s size=%d", aws.StringValue(r.SequenceNumber),
			aws.StringValue(r.PartitionKey), len(r.Data))
	}

	last := input.Records[len(input.Records)-1]
	p.log.Infof("Checkpointing %d records at %s, %d ms behind latest", len(input.Records),
		aws.StringValue(last.SequenceNumber), input.MillisBehindLatest)
	return input.Checkpointer.Checkpoint(last.SequenceNumber)
}

func (p *loggingRecordProcessor) Shutdown(input *kcl.ShutdownInput) error {
	p.log.Infof("Shutdown reason: %s", aws.StringValue(kcl.ShutdownReasonMessage(input.ShutdownReason)))

	// Another processor may already own the shard, so ZOMBIE must not checkpoint.
	if input.ShutdownReason == kcl.ZOMBIE {
		return nil
	}
	return input.Checkpointer.Checkpoint(nil)
}

func newMonitoringService(procConfig *config.ProcessorConfiguration) metrics.MonitoringService {
	if procConfig.MetricsListenAddress == "" {
		return metrics.NoopMonitoringService{}
	}
	return prometheus.NewMonitoringService(procConfig.MetricsListenAddress, procConfig.RegionName, procConfig.Logger)
}

func run(ctx context.Context) error {
	procConfig, err := config.LoadProcessorConfigFromEnv()
	if err != nil {
		return err
	}

	processor := &loggingRecordProcessor{log: procConfig.Logger}
	return multilang.NewConsumer(procConfig, processor).
		WithMonitoringService(newMonitoringService(procConfig)).
		Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// stdout belongs to the daemon
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
