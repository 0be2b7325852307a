// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package slogcallasync moves record delivery off the intercepted call path.
// [Wrap] returns a slogcall.Sink that queues records on a bounded channel and
// hands them to the wrapped sink from worker goroutines.
//
//	sink := slogcallasync.Wrap(slogcall.NewSlogSink(logger),
//		slogcallasync.WithQueueSize(4096),
//		slogcallasync.WithDropMode(slogcallasync.DropModeDropNewest),
//	)
//	defer sink.Close()
//	ic, err := slogcall.New(sink)
//
// Queued records keep the values of their context but not its cancellation,
// so a record outlives the request that produced it.
//
// The following environment variables are recognized when [WithEnv] is
// supplied:
//   - SLOGCALL_ASYNC_QUEUE_SIZE: channel capacity (0 makes the queue unbuffered)
//   - SLOGCALL_ASYNC_DROP_MODE: block | drop_newest | drop_oldest
//   - SLOGCALL_ASYNC_WORKERS: number of worker goroutines
//   - SLOGCALL_ASYNC_FLUSH_TIMEOUT: duration string used by Close
package slogcallasync
