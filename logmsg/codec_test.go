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

package logmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() *Message {
	m := &Message{
		ReceiptID: 42,
		Flags:     0xabcd0000 | 0x00ff, // low bits must not survive
		Priority:  6,
		SourceAddr: SockAddr{
			Family: AddrFamilyInet,
			IP:     []byte{192, 168, 1, 1},
			Port:   514,
		},
		Origin:    Timestamp{Sec: 1000, USec: 1, ZoneOffset: -3600},
		Received:  Timestamp{Sec: 1001, USec: 2, ZoneOffset: 0},
		Processed: Timestamp{Sec: 1002, USec: 3, ZoneOffset: 3600},
		HostID:    7,
		Tags:      []string{"tag1", "tag2"},
		InitialParse: 1,
		NumMatches:   2,
		SDataHandles: []uint32{1},
		AllocSData:   1,
		Payload: &NVTable{Entries: []NVEntry{
			{Kind: NVEntryDirect, Handle: 1, Value: []byte("hello")},
		}},
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	m := sampleMessage()
	data := Serialize(m)
	got, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, m.ReceiptID, got.ReceiptID)
	assert.Equal(t, m.PersistentFlags(), got.PersistentFlags())
	assert.Equal(t, FlagsRuntimeInit, got.Flags&runtimeStateMask)
	assert.Equal(t, m.Priority, got.Priority)
	assert.Equal(t, m.SourceAddr, got.SourceAddr)
	assert.Equal(t, m.Origin, got.Origin)
	assert.Equal(t, m.Received, got.Received)
	assert.Equal(t, m.Processed, got.Processed)
	assert.Equal(t, m.HostID, got.HostID)
	assert.Equal(t, m.Tags, got.Tags)
	assert.Equal(t, m.SDataHandles, got.SDataHandles)
	assert.Equal(t, m.Payload.Entries, got.Payload.Entries)
}

func TestRoundTripUnixAndNoneAddr(t *testing.T) {
	for _, fam := range []AddrFamily{AddrFamilyUnix, AddrFamilyNone} {
		m := sampleMessage()
		m.SourceAddr = SockAddr{Family: fam}
		data := Serialize(m)
		got, err := Deserialize(data)
		require.NoError(t, err)
		assert.Equal(t, fam, got.SourceAddr.Family)
	}
}

func TestRoundTripIndirectEntry(t *testing.T) {
	m := sampleMessage()
	m.Payload.Entries = append(m.Payload.Entries, NVEntry{
		Kind:      NVEntryIndirect,
		Handle:    2,
		RefHandle: 1,
		Offset:    0,
		Length:    3,
		ValueType: 1,
	})
	m.SDataHandles = []uint32{1, 2}

	data := Serialize(m)
	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, m.Payload.Entries, got.Payload.Entries)
}

func TestDeserializeTruncated(t *testing.T) {
	m := sampleMessage()
	data := Serialize(m)
	_, err := Deserialize(data[:len(data)-5])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDeserializeVersionMismatch(t *testing.T) {
	m := sampleMessage()
	data := Serialize(m)
	data[0] = 0xff
	_, err := Deserialize(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestDeserializeBadFamily(t *testing.T) {
	m := sampleMessage()
	m.SourceAddr = SockAddr{Family: AddrFamilyNone}
	data := Serialize(m)
	// corrupt the family field (first two bytes after the fixed header
	// preceding it: version(1)+receiptid(8)+flags(4)+priority(2) = 15)
	data[15] = 0xff
	data[16] = 0xff
	_, err := Deserialize(data)
	assert.ErrorIs(t, err, ErrBadFamily)
}

func TestDeserializeBadPayloadHandle(t *testing.T) {
	m := sampleMessage()
	m.SDataHandles = []uint32{99} // does not resolve
	data := Serialize(m)
	_, err := Deserialize(data)
	assert.ErrorIs(t, err, ErrBadPayload)
}
