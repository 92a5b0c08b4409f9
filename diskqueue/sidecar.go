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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bkil-syslogng/syslog-ng/logmsg"
)

// encodeSidecar serializes qout, qbacklog and qoverflow (in that order)
// into the bytes File.SaveState writes past the fixed header — §4.2's
// "sidecar serialization writes qout, qbacklog, qoverflow into the
// reserved prefix." Each list is a uint32 count followed by that many
// entries; each entry is an ack-needed byte followed by a
// length-prefixed logmsg.Serialize blob.
func encodeSidecar(lists ...[]pendingEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, list := range lists {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(list))); err != nil {
			return nil, err
		}
		for _, e := range list {
			ack := byte(0)
			if e.opts.AckNeeded {
				ack = 1
			}
			buf.WriteByte(ack)

			data := logmsg.Serialize(e.msg)
			if err := binary.Write(&buf, binary.LittleEndian, uint32(len(data))); err != nil {
				return nil, err
			}
			buf.Write(data)
		}
	}
	return buf.Bytes(), nil
}

// decodeSidecar is the inverse of encodeSidecar, returning the qout,
// qbacklog and qoverflow lists in that order. An all-zero input (a
// freshly created file's untouched reserved prefix) decodes as three
// empty lists.
func decodeSidecar(raw []byte) (qout, qbacklog, qoverflow []pendingEntry, err error) {
	r := bytes.NewReader(raw)
	out := make([][]pendingEntry, 3)
	for i := range out {
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, nil, fmt.Errorf("diskqueue: decoding sidecar: %w", err)
		}
		entries := make([]pendingEntry, 0, n)
		for j := uint32(0); j < n; j++ {
			ackByte, err := r.ReadByte()
			if err != nil {
				return nil, nil, nil, fmt.Errorf("diskqueue: decoding sidecar: %w", err)
			}

			var dataLen uint32
			if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
				return nil, nil, nil, fmt.Errorf("diskqueue: decoding sidecar: %w", err)
			}
			data := make([]byte, dataLen)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, nil, nil, fmt.Errorf("diskqueue: decoding sidecar: %w", err)
			}

			msg, err := logmsg.Deserialize(data)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("diskqueue: decoding sidecar: %w", err)
			}
			entries = append(entries, pendingEntry{msg: msg, opts: PathOptions{AckNeeded: ackByte != 0}})
		}
		out[i] = entries
	}
	return out[0], out[1], out[2], nil
}
