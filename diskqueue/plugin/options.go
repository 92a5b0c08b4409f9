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

// Package plugin is the destination-side glue for diskqueue: option
// validation, the persist-name registry that survives config reloads, and
// the acquire/release lifecycle a driver calls into.
package plugin

import (
	"github.com/elastic/elastic-agent-libs/config"
	"github.com/elastic/elastic-agent-libs/logp"
)

// minDiskBufSize is the smallest non-zero disk_buf_size accepted, matching
// the source's MIN_DISK_BUF_SIZE.
const minDiskBufSize = 1024 * 1024

// minQOutSize is the smallest qout_size accepted.
const minQOutSize = 64

// Options is the destination-level configuration surface, unpacked from
// a *config.C the way the teacher's processor configs are (see
// add_host_metadata.Config): `config:"..."`-tagged fields with a
// defaultOptions() constructor supplying the source's -1/"not yet set"
// sentinels.
//
// Options deliberately has no seed-list field (no destination-address-list
// deduplication or reordering of the kind the original MongoDB destination
// plugin did): that behavior belonged to a different destination and isn't
// part of this queue core. Don't add list-ordering normalization here on
// the assumption it was an oversight.
type Options struct {
	DiskBufSize   int64  `config:"disk_buf_size"`
	QOutSize      int    `config:"qout_size"`
	MemBufSize    int    `config:"mem_buf_size"`
	MemBufLength  int    `config:"mem_buf_length"`
	Reliable      bool   `config:"reliable"`
	Dir           string `config:"dir"`
}

// defaultOptions mirrors diskq_dest_plugin_new: disk_buf_size/mem_buf_length/
// qout_size start at -1 ("not configured"), reliable defaults to false.
func defaultOptions() Options {
	return Options{
		DiskBufSize:  -1,
		MemBufLength: -1,
		QOutSize:     -1,
		MemBufSize:   -1,
		Reliable:     false,
	}
}

// Validate clamps DiskBufSize and QOutSize to their documented minimums
// (logging a Warn on clamp, mirroring diskq_disk_buf_size_set /
// diskq_log_qout_size_set), resolves the -1 "unset" sentinels of QOutSize
// and MemBufLength left by defaultOptions (a MemBufSize of -1 is left
// unchanged), and warns about mem-buf settings that don't apply to the
// chosen variant (diskq_check_plugin_settings). fifoSize is the
// destination driver's own log-fifo-size fallback for MemBufLength, the
// way diskq_dest_plugin_attach falls back to dd->log_fifo_size.
func (o *Options) Validate(logger *logp.Logger, fifoSize int) error {
	if logger == nil {
		logger = logp.NewLogger("diskqueue")
	}

	if o.DiskBufSize < 0 {
		return &ConfigError{Field: "disk_buf_size", Reason: "required parameter not set"}
	}
	if o.DiskBufSize != 0 && o.DiskBufSize < minDiskBufSize {
		logger.Warnf("disk_buf_size %d is below the minimum %d, using %d instead",
			o.DiskBufSize, minDiskBufSize, minDiskBufSize)
		o.DiskBufSize = minDiskBufSize
	}
	if o.DiskBufSize == 0 {
		logger.Warnf("disk_buf_size is zero, no disk queue file will be created")
	}

	if o.QOutSize < 0 {
		o.QOutSize = minQOutSize
	} else if o.QOutSize < minQOutSize {
		logger.Warnf("qout_size %d is below the minimum %d, using %d instead",
			o.QOutSize, minQOutSize, minQOutSize)
		o.QOutSize = minQOutSize
	}

	if o.MemBufLength < 0 {
		o.MemBufLength = fifoSize
	}

	if o.Reliable {
		if o.MemBufLength > 0 {
			logger.Warnf("reliable queue: mem_buf_length is ignored")
		}
	} else if o.MemBufSize > 0 {
		logger.Warnf("non-reliable queue: mem_buf_size is ignored")
	}

	return nil
}

// UnpackOptions unpacks c into a fresh Options seeded with defaultOptions,
// the way dashboards.Unpack and the processor configs unpack a *config.C
// into their own Config struct before validating it.
func UnpackOptions(c *config.C) (Options, error) {
	o := defaultOptions()
	if c == nil {
		return o, nil
	}
	if err := c.Unpack(&o); err != nil {
		return Options{}, err
	}
	return o, nil
}

// ConfigError reports a malformed or missing Options field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "diskqueue plugin: " + e.Field + ": " + e.Reason
}
