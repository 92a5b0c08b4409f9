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

package persiststate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "positions.json")
	s, err := Open(path)
	require.NoError(t, err)
	_, ok := s.Get("foo")
	assert.False(t, ok)
}

func TestSetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("dest1", "/var/lib/q/dest1.qf"))
	p, ok := s.Get("dest1")
	require.True(t, ok)
	assert.Equal(t, "/var/lib/q/dest1.qf", p)

	require.NoError(t, s.Delete("dest1"))
	_, ok = s.Get("dest1")
	assert.False(t, ok)
}

func TestReopenRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("dest1", "/a/dest1.qf"))
	require.NoError(t, s.Set("dest2", "/a/dest2.qf"))

	s2, err := Open(path)
	require.NoError(t, err)
	p1, ok := s2.Get("dest1")
	require.True(t, ok)
	assert.Equal(t, "/a/dest1.qf", p1)
	p2, ok := s2.Get("dest2")
	require.True(t, ok)
	assert.Equal(t, "/a/dest2.qf", p2)
}
