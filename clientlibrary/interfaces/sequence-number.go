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
// The implementation is derived from https://github.com/awslabs/amazon-kinesis-client
/*
 * Copyright 2014-2015 Amazon.com, Inc. or its affiliates. All Rights Reserved.
 *
 * Licensed under the Amazon Software License (the "License").
 * You may not use this file except in compliance with the License.
 * A copy of the License is located at
 *
 * http://aws.amazon.com/asl/
 *
 * or in the "license" file accompanying this file. This file is distributed
 * on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */
package interfaces

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
)

// ExtendedSequenceNumber represents a two-part sequence number for records aggregated by the Kinesis
// Producer Library.
//
// The KPL combines multiple user records into a single Kinesis record. Each user record therefore has an
// integer sub-sequence number, in addition to the regular sequence number of the Kinesis record. The
// sub-sequence number is used to checkpoint within an aggregated record.
type ExtendedSequenceNumber struct {
	SequenceNumber    *string
	SubSequenceNumber int64
}

func (e *ExtendedSequenceNumber) String() string {
	if e == nil || e.SequenceNumber == nil {
		return "<none>"
	}
	if e.SubSequenceNumber == 0 {
		return aws.StringValue(e.SequenceNumber)
	}
	return fmt.Sprintf("%s.%d", aws.StringValue(e.SequenceNumber), e.SubSequenceNumber)
}
