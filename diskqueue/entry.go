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

import "github.com/bkil-syslogng/syslog-ng/logmsg"

// PathOptions carries the per-record flow-control state the source keeps
// alongside a LogPathOptions: whether the producer side is still waiting
// on an ack for this record. It travels with a record through qout,
// qoverflow, qreliable and qbacklog exactly the way the source's
// LOG_PATH_OPTIONS_FOR_BACKLOG / LOG_PATH_OPTIONS_TO_POINTER pairs do.
type PathOptions struct {
	AckNeeded bool
}

// pendingEntry is one in-memory sidecar slot: a record that hasn't yet
// been durably written, or one that has been popped but not yet acked.
// The source refcounts *LogMessage for this; here the struct simply holds
// a *logmsg.Message and relies on the garbage collector, per Design Note 1.
type pendingEntry struct {
	msg     *logmsg.Message
	opts    PathOptions
	diskPos uint64 // meaningful only for the reliable variant's qreliable and qbacklog
}
