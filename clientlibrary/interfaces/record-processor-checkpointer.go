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

type (
	/**
	 * Used by RecordProcessors when they want to checkpoint their progress.
	 * The multilang runtime passes an object implementing this interface to RecordProcessors, so they can
	 * checkpoint their progress. The checkpoint itself is stored by the MultiLangDaemon.
	 */
	IRecordProcessorCheckpointer interface {
		/**
		 * This method will checkpoint the progress at the provided sequenceNumber. A nil sequenceNumber
		 * checkpoints the last data record that was delivered to the record processor.
		 * Upon fail over (after a successful checkpoint() call), the new/replacement RecordProcessor instance
		 * will receive data records whose sequenceNumber > checkpoint position (for each partition key).
		 * In steady state, applications should checkpoint periodically (e.g. once every 5 minutes).
		 * Calling this API too frequently can slow down the application (because it puts pressure on the underlying
		 * checkpoint storage layer).
		 *
		 * Throttled checkpoints are retried before an error is returned. Any other failure reported by the
		 * daemon is returned as is; the record processor should stop processing after a shutdown error.
		 */
		Checkpoint(sequenceNumber *string) error

		/**
		 * This method will checkpoint the progress at the provided sequenceNumber and subSequenceNumber, the latter for
		 * aggregated records produced with the Producer Library.
		 */
		CheckpointWithSubSequence(sequenceNumber string, subSequenceNumber int64) error
	}
)
