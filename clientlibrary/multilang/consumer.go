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
// Package multilang implements the record processor side of the MultiLangDaemon protocol. The
// daemon starts the processor once per shard and talks to it over stdin and stdout, one JSON
// object per line. Nothing but protocol messages may be written to stdout.
package multilang

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	ks "github.com/aws/aws-sdk-go/service/kinesis"

	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/config"
	kcl "github.com/vmware/vmware-go-kcl-multilang/clientlibrary/interfaces"
	"github.com/vmware/vmware-go-kcl-multilang/clientlibrary/metrics"
	"github.com/vmware/vmware-go-kcl-multilang/logger"
)

var (
	// ErrUnsupportedAction is returned for an action the runtime does not know.
	ErrUnsupportedAction = errors.New("unsupported KCL action")

	// ErrInvalidCheckpointAck is returned when the daemon answers a checkpoint request with another action.
	ErrInvalidCheckpointAck = errors.New("invalid checkpoint ack")
)

// Consumer reads actions from the daemon and dispatches them to a record processor.
type Consumer struct {
	procConfig   *config.ProcessorConfiguration
	processor    kcl.IRecordProcessor
	mService     metrics.MonitoringService
	checkpointer *Checkpointer

	reader *bufio.Reader
	writer io.Writer

	shardID string
}

// NewConsumer constructs a Consumer talking to the daemon over stdin and stdout.
func NewConsumer(procConfig *config.ProcessorConfiguration, processor kcl.IRecordProcessor) *Consumer {
	if procConfig.Logger == nil {
		procConfig.Logger = logger.GetDefaultLogger()
	}

	c := &Consumer{
		procConfig: procConfig,
		processor:  processor,
		mService:   metrics.NoopMonitoringService{},
		reader:     bufio.NewReader(os.Stdin),
		writer:     os.Stdout,
	}
	c.checkpointer = newCheckpointer(c)
	return c
}

// WithIO is used to replace stdin and stdout, mainly for unit testing.
func (c *Consumer) WithIO(in io.Reader, out io.Writer) *Consumer {
	c.reader = bufio.NewReader(in)
	c.writer = out
	return c
}

// WithMonitoringService is used to publish processing metrics.
func (c *Consumer) WithMonitoringService(mService metrics.MonitoringService) *Consumer {
	if mService == nil {
		mService = metrics.NoopMonitoringService{}
	}
	c.mService = mService
	return c
}

// Run processes actions until the daemon closes stdin, in which case it returns nil. Any protocol
// fault or processor error stops the loop and is returned. Cancelling ctx stops the loop before
// the next action is read.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.procConfig.Logger

	if err := c.mService.Init(c.procConfig.ApplicationName, c.procConfig.StreamName, c.procConfig.WorkerID); err != nil {
		log.Errorf("Failed to initialize monitoring service: %+v", err)
		return err
	}
	if err := c.mService.Start(); err != nil {
		log.Errorf("Failed to start monitoring service: %+v", err)
		return err
	}
	defer c.mService.Shutdown()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			log.Infof("Input closed, record processor for shard %s exiting", c.shardID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading action: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		if err := c.handleAction(line); err != nil {
			log.Errorf("Record processor for shard %s failed: %+v", c.shardID, err)
			return err
		}
	}
}

// readLine returns the next line without its terminator. Lines of any length are accepted.
func (c *Consumer) readLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (c *Consumer) writeMessage(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := c.writer.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("writing to daemon: %w", err)
	}
	return nil
}

func (c *Consumer) handleAction(line []byte) error {
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil {
		return fmt.Errorf("could not understand line read from input %q: %w", line, err)
	}

	var err error
	switch msg.Action {
	case ActionInitialize:
		err = c.handleInitialize(&msg)
	case ActionProcessRecords:
		err = c.handleProcessRecords(&msg)
	case ActionLeaseLost:
		err = c.handleShutdown(kcl.ZOMBIE)
	case ActionShardEnded:
		err = c.handleShutdown(kcl.TERMINATE)
	case ActionShutdownRequested:
		err = c.handleShutdown(kcl.REQUESTED)
	case ActionShutdown:
		reason, ok := kcl.ParseShutdownReason(msg.Reason)
		if !ok {
			return fmt.Errorf("unknown shutdown reason %q", msg.Reason)
		}
		err = c.handleShutdown(reason)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, msg.Action)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", msg.Action, err)
	}

	return c.writeMessage(statusMessage{Action: ActionStatus, ResponseFor: msg.Action})
}

func (c *Consumer) handleInitialize(msg *message) error {
	c.shardID = msg.ShardID

	input := &kcl.InitializationInput{ShardId: msg.ShardID}
	if msg.SequenceNumber != nil {
		input.ExtendedSequenceNumber = &kcl.ExtendedSequenceNumber{SequenceNumber: msg.SequenceNumber}
		if msg.SubSequenceNumber != nil {
			input.ExtendedSequenceNumber.SubSequenceNumber = *msg.SubSequenceNumber
		}
	}

	c.procConfig.Logger.Infof("Initializing record processor for shard %s at %s", c.shardID, input.ExtendedSequenceNumber)
	if err := c.processor.Initialize(input); err != nil {
		return err
	}
	c.mService.LeaseGained(c.shardID)
	return nil
}

func (c *Consumer) handleProcessRecords(msg *message) error {
	records := make([]*ks.Record, 0, len(msg.Records))
	subSequenceNumbers := make([]int64, 0, len(msg.Records))
	var size int64
	for i := range msg.Records {
		rec, err := msg.Records[i].toKinesisRecord()
		if err != nil {
			return err
		}
		records = append(records, rec)
		subSequenceNumbers = append(subSequenceNumbers, msg.Records[i].SubSequenceNumber)
		size += int64(len(rec.Data))
	}

	start := time.Now()
	err := c.processor.ProcessRecords(&kcl.ProcessRecordsInput{
		Records:            records,
		SubSequenceNumbers: subSequenceNumbers,
		Checkpointer:       c.checkpointer,
		MillisBehindLatest: msg.MillisBehindLatest,
	})
	if err != nil {
		return err
	}

	c.mService.RecordProcessRecordsTime(c.shardID, float64(time.Since(start).Milliseconds()))
	c.mService.IncrRecordsProcessed(c.shardID, len(records))
	c.mService.IncrBytesProcessed(c.shardID, size)
	c.mService.MillisBehindLatest(c.shardID, float64(msg.MillisBehindLatest))
	return nil
}

func (c *Consumer) handleShutdown(reason kcl.ShutdownReason) error {
	c.procConfig.Logger.Infof("Shutting down record processor for shard %s: %s",
		c.shardID, aws.StringValue(kcl.ShutdownReasonMessage(reason)))

	if err := c.processor.Shutdown(&kcl.ShutdownInput{ShutdownReason: reason, Checkpointer: c.checkpointer}); err != nil {
		return err
	}
	if reason != kcl.REQUESTED {
		c.mService.LeaseLost(c.shardID)
	}
	return nil
}
