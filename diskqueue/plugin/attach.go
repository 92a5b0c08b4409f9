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

package plugin

import (
	"github.com/elastic/elastic-agent-libs/logp"
	"github.com/elastic/elastic-agent-libs/monitoring"

	"github.com/bkil-syslogng/syslog-ng/diskqueue"
	"github.com/bkil-syslogng/syslog-ng/persiststate"
)

// Driver is the handful of fields a destination driver contributes to
// Acquire/Release — the Go counterpart of the source's LogDestDriver
// fields the diskq plugin reads (throttle/log_fifo_size) and writes
// (acquire_queue/release_queue), without the virtual-dispatch machinery:
// the driver just calls Acquire directly.
type Driver struct {
	PersistName string
	LogFifoSize int
}

// Acquire returns a Queue for d, either resuming one parked in reg under
// the same persist-name (§4.6's reload path) or constructing and loading
// a fresh one — mirroring diskq_dest_plugin_acquire_queue. store, if
// non-nil, is consulted/updated for the queue file's path across process
// restarts (§6's persiststate).
func Acquire(
	reg *Registry,
	opts Options,
	d Driver,
	store *persiststate.Store,
	logger *logp.Logger,
	metrics *monitoring.Registry,
) (diskqueue.Queue, error) {
	if logger == nil {
		logger = logp.NewLogger("diskqueue")
	}

	settings := diskqueue.Settings{
		PersistName:   d.PersistName,
		Dir:           opts.Dir,
		QDiskSize:     uint64(opts.DiskBufSize),
		Reliable:      opts.Reliable,
		UseBacklog:    true,
		MemBufSize:    uint64(opts.MemBufSize),
		QOutSize:      opts.QOutSize,
		QOverflowSize: opts.MemBufLength,
	}

	if parked, ok := reg.take(d.PersistName); ok {
		if parked.IsReliable() == opts.Reliable {
			return parked, nil
		}
		dropIncompatible(logger, d.PersistName, parked)
	}

	q := diskqueue.New(settings, logger, metrics)

	path := settings.FilePath()
	if store != nil {
		if p, ok := store.Get(d.PersistName); ok {
			path = p
		}
	}

	if err := q.LoadQueue(path); err != nil {
		logger.Errorf("error opening disk-queue file %s, starting a new one: %v", path, err)
		path = settings.FilePath()
		if err := q.LoadQueue(path); err != nil {
			return nil, err
		}
	}

	if store != nil && d.PersistName != "" {
		if err := store.Set(d.PersistName, path); err != nil {
			logger.Warnf("couldn't persist queue file path for %s: %v", d.PersistName, err)
		}
	}

	return q, nil
}

// Release persists q's state and parks it under persistName for a future
// Acquire (typically the next config reload), mirroring
// diskq_dest_plugin_release_queue. A queue with no persist-name is simply
// closed — there is nothing to park it under.
func Release(reg *Registry, persistName string, q diskqueue.Queue) error {
	if _, err := q.SaveQueue(); err != nil {
		return err
	}
	if persistName == "" {
		return q.Close()
	}
	reg.park(persistName, q)
	return nil
}
