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

package diskqueuetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bkil-syslogng/syslog-ng/diskqueue"
)

func reliableFactory(t *testing.T) diskqueue.Queue {
	dir := t.TempDir()
	settings := diskqueue.Settings{
		PersistName: "qt",
		Dir:         dir,
		QDiskSize:   4 * 1024 * 1024,
		Reliable:    true,
		UseBacklog:  true,
		MemBufSize:  64 * 1024,
	}
	q := diskqueue.New(settings, nil, nil)
	require.NoError(t, q.LoadQueue(filepath.Join(dir, "qt.qf")))
	return q
}

func nonReliableFactory(t *testing.T) diskqueue.Queue {
	dir := t.TempDir()
	settings := diskqueue.Settings{
		PersistName:   "qt",
		Dir:           dir,
		QDiskSize:     4 * 1024 * 1024,
		Reliable:      false,
		UseBacklog:    true,
		QOutSize:      16,
		QOverflowSize: 1000,
	}
	q := diskqueue.New(settings, nil, nil)
	require.NoError(t, q.LoadQueue(filepath.Join(dir, "qt.qf")))
	return q
}

func TestSingleProducerConsumerReliable(t *testing.T) {
	RunSingleProducerConsumer(t, 50, -1, reliableFactory)
}

func TestSingleProducerConsumerReliableBatched(t *testing.T) {
	RunSingleProducerConsumer(t, 50, 7, reliableFactory)
}

func TestSingleProducerConsumerNonReliable(t *testing.T) {
	RunSingleProducerConsumer(t, 50, -1, nonReliableFactory)
}

func TestMultiProducerConsumerReliable(t *testing.T) {
	RunMultiProducerConsumer(t, 3, 2, 40, 5, reliableFactory)
}

func TestMultiProducerConsumerNonReliable(t *testing.T) {
	RunMultiProducerConsumer(t, 3, 2, 40, 5, nonReliableFactory)
}
