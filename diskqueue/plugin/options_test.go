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
	"testing"

	"github.com/elastic/elastic-agent-libs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpackOptionsAppliesConfigOverDefaults(t *testing.T) {
	c, err := config.NewConfigFrom(map[string]interface{}{
		"disk_buf_size": minDiskBufSize,
		"reliable":      true,
		"dir":           "/var/lib/diskq",
	})
	require.NoError(t, err)

	o, err := UnpackOptions(c)
	require.NoError(t, err)
	assert.Equal(t, int64(minDiskBufSize), o.DiskBufSize)
	assert.True(t, o.Reliable)
	assert.Equal(t, "/var/lib/diskq", o.Dir)
	assert.Equal(t, -1, o.QOutSize)
}

func TestUnpackOptionsNilConfigReturnsDefaults(t *testing.T) {
	o, err := UnpackOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultOptions(), o)
}

func TestDefaultOptionsRequiresDiskBufSize(t *testing.T) {
	o := defaultOptions()
	err := o.Validate(nil, 0)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "disk_buf_size", cfgErr.Field)
}

func TestValidateClampsDiskBufSize(t *testing.T) {
	o := defaultOptions()
	o.DiskBufSize = 1024
	require.NoError(t, o.Validate(nil, 0))
	assert.Equal(t, int64(minDiskBufSize), o.DiskBufSize)
}

func TestValidateZeroDiskBufSizeAllowed(t *testing.T) {
	o := defaultOptions()
	o.DiskBufSize = 0
	require.NoError(t, o.Validate(nil, 0))
	assert.Equal(t, int64(0), o.DiskBufSize)
}

func TestValidateClampsQOutSize(t *testing.T) {
	o := defaultOptions()
	o.DiskBufSize = minDiskBufSize
	o.QOutSize = 4
	require.NoError(t, o.Validate(nil, 0))
	assert.Equal(t, minQOutSize, o.QOutSize)
}

func TestValidateDefaultsQOutSizeWhenUnset(t *testing.T) {
	o := defaultOptions()
	o.DiskBufSize = minDiskBufSize
	require.NoError(t, o.Validate(nil, 0))
	assert.Equal(t, minQOutSize, o.QOutSize)
}

func TestValidateMemBufLengthFallsBackToFifoSize(t *testing.T) {
	o := defaultOptions()
	o.DiskBufSize = minDiskBufSize
	require.NoError(t, o.Validate(nil, 128))
	assert.Equal(t, 128, o.MemBufLength)
}
