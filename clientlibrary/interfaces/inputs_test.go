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
package interfaces

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	ks "github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/stretchr/testify/assert"
)

func TestParseShutdownReason(t *testing.T) {
	reason, ok := ParseShutdownReason("TERMINATE")
	assert.True(t, ok)
	assert.Equal(t, TERMINATE, reason)

	reason, ok = ParseShutdownReason(" zombie")
	assert.True(t, ok)
	assert.Equal(t, ZOMBIE, reason)

	_, ok = ParseShutdownReason("GONE")
	assert.False(t, ok)

	assert.Equal(t, "REQUESTED", aws.StringValue(ShutdownReasonMessage(REQUESTED)))
	assert.Nil(t, ShutdownReasonMessage(ShutdownReason(42)))
}

func TestExtendedSequenceNumber(t *testing.T) {
	input := &ProcessRecordsInput{
		Records: []*ks.Record{
			{SequenceNumber: aws.String("100")},
			{SequenceNumber: aws.String("100")},
			{SequenceNumber: aws.String("200")},
		},
		SubSequenceNumbers: []int64{0, 1},
	}

	assert.Equal(t, "100", input.ExtendedSequenceNumber(0).String())
	assert.Equal(t, "100.1", input.ExtendedSequenceNumber(1).String())
	assert.Equal(t, "200", input.ExtendedSequenceNumber(2).String())

	var missing *ExtendedSequenceNumber
	assert.Equal(t, "<none>", missing.String())
}
