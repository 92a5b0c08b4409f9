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

package diskqueue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNonReliableQueue(t *testing.T, diskSize uint64, qoutSize, qoverflowSize int) *nonReliableQueue {
	t.Helper()
	settings := Settings{
		PersistName:   "test",
		QDiskSize:     diskSize,
		Reliable:      false,
		UseBacklog:    true,
		QOutSize:      qoutSize,
		QOverflowSize: qoverflowSize,
	}
	q := newNonReliableQueue(settings, nil, nil)
	path := filepath.Join(t.TempDir(), "nonreliable.qf")
	require.NoError(t, q.LoadQueue(path))
	t.Cleanup(func() { q.Close() })
	return q
}

// TestNonReliableFastPathBypassesDisk implements spec §8 scenario 2: the
// fast path (qout has room, disk empty) never touches the disk tier.
func TestNonReliableFastPathBypassesDisk(t *testing.T) {
	q := newTestNonReliableQueue(t, 1<<20, 16, 16)

	for i := 0; i < 5; i++ {
		ok, err := q.PushTail(testMessage("fast"), PathOptions{})
		require.NoError(t, err)
		require.True(t, ok)
	}

	assert.Equal(t, uint64(0), q.file.Length())
	assert.Len(t, q.qout, 5)
	assert.Equal(t, uint64(5), q.Length())
}

// TestNonReliableOverflowSpillAndDrop implements spec §8 scenario 3: once
// qout is full and the disk rejects (simulated via a tiny disk), records
// spill into qoverflow, and once that's full too, drop.
func TestNonReliableOverflowSpillAndDrop(t *testing.T) {
	// A disk region too small for even one serialized record forces every
	// push past the first into qoverflow once qout is full.
	q := newTestNonReliableQueue(t, 50, 1, 2)

	ok, err := q.PushTail(testMessage("a"), PathOptions{})
	require.NoError(t, err)
	require.True(t, ok) // into qout (disk empty, qout has room)

	ok, err = q.PushTail(testMessage("b"), PathOptions{})
	require.NoError(t, err)
	require.True(t, ok) // qout full, disk too small, spills to qoverflow
	assert.Equal(t, uint64(0), q.file.Length())

	ok, err = q.PushTail(testMessage("c"), PathOptions{})
	require.NoError(t, err)
	require.True(t, ok) // qoverflow still has room

	ok, err = q.PushTail(testMessage("d"), PathOptions{})
	require.NoError(t, err)
	assert.False(t, ok) // qoverflow full too: dropped
}

func TestNonReliablePopDrainsAllTiers(t *testing.T) {
	q := newTestNonReliableQueue(t, 1<<20, 2, 2)

	var payloads []string
	for i := 0; i < 6; i++ {
		p := string(rune('a' + i))
		payloads = append(payloads, p)
		ok, err := q.PushTail(testMessage(p), PathOptions{})
		require.NoError(t, err)
		require.True(t, ok)
	}

	var got []string
	for i := 0; i < 6; i++ {
		msg, _, ok, err := q.PopHead()
		require.NoError(t, err)
		require.True(t, ok)
		got = append(got, string(msg.Payload.Entries[0].Value))
	}
	assert.Equal(t, payloads, got)

	_, _, ok, err := q.PopHead()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonReliableAckAndRewindBacklog(t *testing.T) {
	q := newTestNonReliableQueue(t, 1<<20, 8, 8)

	for i := 0; i < 4; i++ {
		ok, err := q.PushTail(testMessage(string(rune('a'+i))), PathOptions{})
		require.NoError(t, err)
		require.True(t, ok)
	}
	for i := 0; i < 4; i++ {
		_, _, ok, err := q.PopHead()
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, q.RewindBacklog(2))
	assert.Equal(t, uint64(2), q.Length())

	msg, _, ok, err := q.PopHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", string(msg.Payload.Entries[0].Value))

	require.NoError(t, q.AckBacklog(2))
}
