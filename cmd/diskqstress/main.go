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

// Command diskqstress drives a disk queue with synthetic producers and
// consumers and reports throughput, the way scripts/cmd/stress_pipeline
// drives a full beat pipeline — scaled down to just the queue core this
// module covers, with flags standing in for the file-based config that
// tool reads.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/bkil-syslogng/syslog-ng/diskqueue"
	"github.com/bkil-syslogng/syslog-ng/diskqueue/diskqueuetest"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		dir           = flag.String("dir", "", "directory for the queue file (empty: a temp dir)")
		persistName   = flag.String("persist-name", "diskqstress", "persist-name for the queue file")
		diskBufSize   = flag.Uint64("disk-buf-size", 64*1024*1024, "disk_buf_size in bytes")
		reliable      = flag.Bool("reliable", true, "use the reliable queue variant")
		qoutSize      = flag.Int("qout-size", 1000, "qout_size (non-reliable variant only)")
		qoverflowSize = flag.Int("qoverflow-size", 10000, "qoverflow capacity (non-reliable variant only)")
		memBufSize    = flag.Uint64("mem-buf-size", 1024*1024, "mem_buf_size (reliable variant only)")
		producers     = flag.Int("producers", 1, "number of concurrent producers")
		consumers     = flag.Int("consumers", 1, "number of concurrent consumers")
		eventsEach    = flag.Int("events", 10000, "events pushed per producer")
		batchSize     = flag.Int("batch-size", 32, "consumer pop batch size")
	)
	flag.Parse()

	if err := logp.DevelopmentSetup(); err != nil {
		return err
	}
	logger := logp.NewLogger("diskqstress")

	if *dir == "" {
		tmp, err := os.MkdirTemp("", "diskqstress")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		*dir = tmp
	}

	settings := diskqueue.Settings{
		PersistName:   *persistName,
		Dir:           *dir,
		QDiskSize:     *diskBufSize,
		Reliable:      *reliable,
		UseBacklog:    true,
		MemBufSize:    *memBufSize,
		QOutSize:      *qoutSize,
		QOverflowSize: *qoverflowSize,
	}

	q := diskqueue.New(settings, logger, nil)
	if err := q.LoadQueue(settings.FilePath()); err != nil {
		return err
	}
	defer q.Close()

	total := *producers * *eventsEach
	fmt.Printf("driving %d producer(s) x %d events, %d consumer(s), reliable=%v\n",
		*producers, *eventsEach, *consumers, *reliable)

	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(*producers + *consumers)
	for i := 0; i < *producers; i++ {
		go func() { defer wg.Done(); diskqueuetest.RunProducer(q, *eventsEach) }()
	}

	perConsumer := total / *consumers
	remainder := total - perConsumer**consumers
	for i := 0; i < *consumers; i++ {
		share := perConsumer
		if i == *consumers-1 {
			share += remainder
		}
		go func(n int) { defer wg.Done(); diskqueuetest.RunConsumer(q, n, *batchSize) }(share)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Printf("processed %d events in %v (%.0f events/sec)\n",
		total, elapsed, float64(total)/elapsed.Seconds())

	if _, err := q.SaveQueue(); err != nil {
		return err
	}
	return nil
}
