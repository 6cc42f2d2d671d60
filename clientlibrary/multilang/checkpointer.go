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
package multilang

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/matryer/try"

	kcl "github.com/vmware/vmware-go-kcl-multilang/clientlibrary/interfaces"
)

// Error names the daemon reports in a checkpoint ack.
const (
	ErrCodeThrottling   = "ThrottlingException"
	ErrCodeShutdown     = "ShutdownException"
	ErrCodeInvalidState = "InvalidStateException"
)

// CheckpointError is a checkpoint the daemon refused.
type CheckpointError struct {
	SequenceNumber *string
	Code           string
}

func (e *CheckpointError) Error() string {
	if e.SequenceNumber == nil {
		return fmt.Sprintf("checkpoint failed: %s", e.Code)
	}
	return fmt.Sprintf("checkpoint at %s failed: %s", *e.SequenceNumber, e.Code)
}

// IsThrottling reports whether the checkpoint may succeed when retried later.
func (e *CheckpointError) IsThrottling() bool {
	return e.Code == ErrCodeThrottling
}

// Checkpointer sends checkpoint requests to the daemon and waits for the ack. It shares the
// consumer's input, so it must only be used from within a record processor callback.
type Checkpointer struct {
	consumer *Consumer

	retries       int
	backoffMillis int
}

var _ kcl.IRecordProcessorCheckpointer = (*Checkpointer)(nil)

func newCheckpointer(consumer *Consumer) *Checkpointer {
	retries := consumer.procConfig.CheckpointRetries
	if retries <= 0 {
		retries = 1
	}
	if retries > try.MaxRetries {
		retries = try.MaxRetries
	}
	return &Checkpointer{
		consumer:      consumer,
		retries:       retries,
		backoffMillis: consumer.procConfig.CheckpointBackoffMillis,
	}
}

// Checkpoint checkpoints at sequenceNumber, or at the last delivered record when it is nil.
func (cp *Checkpointer) Checkpoint(sequenceNumber *string) error {
	return cp.checkpoint(&checkpointRequest{Action: ActionCheckpoint, SequenceNumber: sequenceNumber})
}

// CheckpointWithSubSequence checkpoints inside an aggregated record.
func (cp *Checkpointer) CheckpointWithSubSequence(sequenceNumber string, subSequenceNumber int64) error {
	return cp.checkpoint(&checkpointRequest{
		Action:            ActionCheckpoint,
		SequenceNumber:    aws.String(sequenceNumber),
		SubSequenceNumber: aws.Int64(subSequenceNumber),
	})
}

func (cp *Checkpointer) checkpoint(req *checkpointRequest) error {
	shardID := cp.consumer.shardID
	log := cp.consumer.procConfig.Logger

	return try.Do(func(attempt int) (bool, error) {
		err := cp.doCheckpoint(req)
		if err == nil {
			cp.consumer.mService.IncrCheckpoints(shardID)
			return false, nil
		}

		var cpErr *CheckpointError
		if !errors.As(err, &cpErr) {
			return false, err
		}
		cp.consumer.mService.IncrCheckpointFailures(shardID)
		if cpErr.IsThrottling() && attempt < cp.retries {
			backoff := time.Duration(math.Exp2(float64(attempt-1))*float64(cp.backoffMillis)) * time.Millisecond
			log.Warnf("Checkpoint throttled on shard %s, attempt %d of %d, retrying in %s", shardID, attempt, cp.retries, backoff)
			time.Sleep(backoff)
			return true, err
		}
		return false, err
	})
}

func (cp *Checkpointer) doCheckpoint(req *checkpointRequest) error {
	if err := cp.consumer.writeMessage(req); err != nil {
		return err
	}

	line, err := cp.consumer.readLine()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("waiting for checkpoint ack: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return fmt.Errorf("waiting for checkpoint ack: %w", err)
	}

	var ack message
	if err := json.Unmarshal(line, &ack); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCheckpointAck, line)
	}
	if ack.Action != ActionCheckpoint {
		return fmt.Errorf("%w: got action %q", ErrInvalidCheckpointAck, ack.Action)
	}
	if ack.Error != nil && *ack.Error != "" {
		return &CheckpointError{SequenceNumber: req.SequenceNumber, Code: *ack.Error}
	}
	return nil
}
