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
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	ks "github.com/aws/aws-sdk-go/service/kinesis"
)

// Actions exchanged with the MultiLangDaemon, one JSON object per line.
const (
	ActionInitialize        = "initialize"
	ActionProcessRecords    = "processRecords"
	ActionLeaseLost         = "leaseLost"
	ActionShardEnded        = "shardEnded"
	ActionShutdownRequested = "shutdownRequested"
	ActionShutdown          = "shutdown"
	ActionCheckpoint        = "checkpoint"
	ActionStatus            = "status"
)

type (
	// message is the union of every field the daemon sends. Only the fields of the named action are set.
	message struct {
		Action             string   `json:"action"`
		ShardID            string   `json:"shardId,omitempty"`
		SequenceNumber     *string  `json:"sequenceNumber,omitempty"`
		SubSequenceNumber  *int64   `json:"subSequenceNumber,omitempty"`
		Records            []record `json:"records,omitempty"`
		MillisBehindLatest int64    `json:"millisBehindLatest,omitempty"`
		Reason             string   `json:"reason,omitempty"`
		Error              *string  `json:"error,omitempty"`
	}

	// record is a Kinesis record as serialized by the daemon. Data is base64 encoded.
	record struct {
		Data                        string            `json:"data"`
		PartitionKey                string            `json:"partitionKey"`
		SequenceNumber              string            `json:"sequenceNumber"`
		SubSequenceNumber           int64             `json:"subSequenceNumber"`
		ApproximateArrivalTimestamp *arrivalTimestamp `json:"approximateArrivalTimestamp,omitempty"`
	}

	// arrivalTimestamp is a java.time.Instant as the daemon serializes it:
	// {"epochSecond":N,"nano":N}. Older daemons send epoch millis as a number.
	arrivalTimestamp struct {
		EpochSecond int64 `json:"epochSecond"`
		Nano        int64 `json:"nano"`
	}

	statusMessage struct {
		Action      string `json:"action"`
		ResponseFor string `json:"responseFor"`
	}

	// checkpointRequest keeps null sequence numbers on the wire; the daemon reads a null
	// sequenceNumber as "everything delivered so far".
	checkpointRequest struct {
		Action            string  `json:"action"`
		SequenceNumber    *string `json:"sequenceNumber"`
		SubSequenceNumber *int64  `json:"subSequenceNumber"`
	}
)

// toKinesisRecord decodes the payload and maps the record onto the SDK type handed to processors.
func (r *record) toKinesisRecord() (*ks.Record, error) {
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", r.SequenceNumber, err)
	}

	rec := &ks.Record{
		Data:           data,
		PartitionKey:   aws.String(r.PartitionKey),
		SequenceNumber: aws.String(r.SequenceNumber),
	}
	if r.ApproximateArrivalTimestamp != nil {
		rec.ApproximateArrivalTimestamp = aws.Time(r.ApproximateArrivalTimestamp.Time())
	}
	return rec, nil
}

func (t *arrivalTimestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		var millis int64
		if err := json.Unmarshal(b, &millis); err != nil {
			return fmt.Errorf("approximateArrivalTimestamp: %w", err)
		}
		t.EpochSecond, t.Nano = millis/1000, (millis%1000)*int64(time.Millisecond)
		return nil
	}

	type instant arrivalTimestamp
	return json.Unmarshal(b, (*instant)(t))
}

func (t *arrivalTimestamp) Time() time.Time {
	return time.Unix(t.EpochSecond, t.Nano)
}
