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

	"github.com/bkil-syslogng/syslog-ng/logmsg"
)

func newTestReliableQueue(t *testing.T, diskSize uint64, memBuf uint64) *reliableQueue {
	t.Helper()
	settings := Settings{
		PersistName: "test",
		QDiskSize:   diskSize,
		Reliable:    true,
		UseBacklog:  true,
		MemBufSize:  memBuf,
	}
	q := newReliableQueue(settings, nil, nil)
	path := filepath.Join(t.TempDir(), "reliable.qf")
	require.NoError(t, q.LoadQueue(path))
	t.Cleanup(func() { q.Close() })
	return q
}

func testMessage(payload string) *logmsg.Message {
	return &logmsg.Message{
		Priority: 6,
		SourceAddr: logmsg.SockAddr{Family: logmsg.AddrFamilyNone},
		Payload: &logmsg.NVTable{Entries: []logmsg.NVEntry{
			{Kind: logmsg.NVEntryDirect, Handle: 1, Value: []byte(payload)},
		}},
	}
}

// TestReliableSmallRun implements spec §8 scenario 1.
func TestReliableSmallRun(t *testing.T) {
	q := newTestReliableQueue(t, 1<<20, 64)

	for i := 0; i < 10; i++ {
		ok, err := q.PushTail(testMessage("0123456789"), PathOptions{})
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, uint64(10), q.Length())

	for i := 0; i < 10; i++ {
		_, _, ok, err := q.PopHead()
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, q.AckBacklog(10))
	assert.Equal(t, uint64(0), q.Length())
	assert.Equal(t, q.file.ReadHead(), q.file.BacklogHead())
	assert.Equal(t, q.file.ReadHead(), q.file.WriteHead())
}

// TestReliableRewindAfterPartialFailure implements spec §8 scenario 5.
func TestReliableRewindAfterPartialFailure(t *testing.T) {
	q := newTestReliableQueue(t, 1<<20, 64)

	var payloads []string
	for i := 0; i < 5; i++ {
		payloads = append(payloads, string(rune('a'+i)))
		ok, err := q.PushTail(testMessage(payloads[i]), PathOptions{})
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := 0; i < 5; i++ {
		_, _, ok, err := q.PopHead()
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, q.RewindBacklog(3))

	for i := 2; i < 5; i++ {
		msg, _, ok, err := q.PopHead()
		require.NoError(t, err)
		require.True(t, ok)
		got := string(msg.Payload.Entries[0].Value)
		assert.Equal(t, payloads[i], got)
	}

	require.NoError(t, q.AckBacklog(2))
}

func TestReliablePushFailsWhenDiskFull(t *testing.T) {
	q := newTestReliableQueue(t, 4096, 64)
	payload := make([]byte, 200)

	pushed := 0
	for {
		msg := &logmsg.Message{
			SourceAddr: logmsg.SockAddr{Family: logmsg.AddrFamilyNone},
			Payload: &logmsg.NVTable{Entries: []logmsg.NVEntry{
				{Kind: logmsg.NVEntryDirect, Handle: 1, Value: payload},
			}},
		}
		ok, err := q.PushTail(msg, PathOptions{})
		require.NoError(t, err)
		if !ok {
			break
		}
		pushed++
		require.Less(t, pushed, 1000)
	}
	assert.Greater(t, pushed, 0)
}

func TestReliableCrashSafety(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reliable.qf")
	settings := Settings{PersistName: "test", QDiskSize: 1 << 20, Reliable: true, UseBacklog: true, MemBufSize: 64}

	q := newReliableQueue(settings, nil, nil)
	require.NoError(t, q.LoadQueue(path))
	ok, err := q.PushTail(testMessage("persisted"), PathOptions{})
	require.NoError(t, err)
	require.True(t, ok)
	persistent, err := q.SaveQueue()
	require.NoError(t, err)
	require.True(t, persistent)
	require.NoError(t, q.Close())

	q2 := newReliableQueue(settings, nil, nil)
	require.NoError(t, q2.LoadQueue(path))
	defer q2.Close()

	msg, _, ok, err := q2.PopHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "persisted", string(msg.Payload.Entries[0].Value))
}
