// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package diskqueuetest provides reusable producer/consumer goroutine
// drivers for exercising a diskqueue.Queue, modeled on
// publisher/queue/queuetest/queuetest.go but adapted from that package's
// channel-batch Producer/Get/Batch.Done API to the mutex-guarded
// PushTail/PopHead/AckBacklog/RewindBacklog facade of §4.5.
package diskqueuetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bkil-syslogng/syslog-ng/diskqueue"
	"github.com/bkil-syslogng/syslog-ng/logmsg"
)

// QueueFactory builds a fresh, already-loaded Queue for one test case.
type QueueFactory func(t *testing.T) diskqueue.Queue

// MakeMessage builds the i-th test message a producer pushes.
func MakeMessage(i int) *logmsg.Message {
	return &logmsg.Message{
		Priority:   6,
		SourceAddr: logmsg.SockAddr{Family: logmsg.AddrFamilyNone},
		Payload: &logmsg.NVTable{Entries: []logmsg.NVEntry{
			{Kind: logmsg.NVEntryDirect, Handle: 1, Value: []byte(fmt.Sprintf("msg-%d", i))},
		}},
	}
}

// RunProducer pushes count messages onto q via PushTail, retrying head-of-
// line on a transient Full result the way a real destination driver spins
// on backpressure, and returns once every message was accepted.
func RunProducer(q diskqueue.Queue, count int) {
	for i := 0; i < count; i++ {
		msg := MakeMessage(i)
		for {
			ok, err := q.PushTail(msg, diskqueue.PathOptions{AckNeeded: true})
			if err != nil || ok {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}
}

// RunConsumer pops count messages off q in batches of batchSize (or one at
// a time when batchSize <= 0), acking each batch immediately, and returns
// once every message has been observed.
func RunConsumer(q diskqueue.Queue, count, batchSize int) {
	if batchSize <= 0 {
		batchSize = 1
	}
	seen := 0
	for seen < count {
		n := 0
		for n < batchSize && seen+n < count {
			_, _, ok, err := q.PopHead()
			if err != nil || !ok {
				time.Sleep(time.Millisecond)
				break
			}
			n++
		}
		if n > 0 {
			_ = q.AckBacklog(uint64(n))
			seen += n
		}
	}
}

// RunSingleProducerConsumer drives one producer and one consumer over a
// freshly built queue and fails t if the run doesn't complete promptly.
func RunSingleProducerConsumer(t *testing.T, events, batchSize int, factory QueueFactory) {
	t.Helper()
	q := factory(t)
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); RunProducer(q, events) }()
	go func() { defer wg.Done(); RunConsumer(q, events, batchSize) }()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("producer/consumer pair did not complete within timeout")
	}
}

// RunMultiProducerConsumer drives numProducers producers and numConsumers
// consumers concurrently against the same queue, each producer pushing
// eventsPerProducer messages.
func RunMultiProducerConsumer(t *testing.T, numProducers, numConsumers, eventsPerProducer, batchSize int, factory QueueFactory) {
	t.Helper()
	q := factory(t)
	defer q.Close()

	total := numProducers * eventsPerProducer

	var wg sync.WaitGroup
	wg.Add(numProducers + numConsumers)
	for i := 0; i < numProducers; i++ {
		go func() { defer wg.Done(); RunProducer(q, eventsPerProducer) }()
	}

	perConsumer := total / numConsumers
	remainder := total - perConsumer*numConsumers
	for i := 0; i < numConsumers; i++ {
		share := perConsumer
		if i == numConsumers-1 {
			share += remainder
		}
		go func(n int) { defer wg.Done(); RunConsumer(q, n, batchSize) }(share)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("producer/consumer run did not complete within timeout")
	}
}
