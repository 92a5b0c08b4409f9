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
	"sync"

	"github.com/elastic/elastic-agent-libs/logp"

	"github.com/bkil-syslogng/syslog-ng/diskqueue"
)

// Registry parks released queues by persist-name across config reloads,
// the way the source's cfg_persist_config_fetch/cfg_persist_config_add
// pair does through GlobalConfig. It is an explicit value owned by the
// caller, never package-level state (Design Note 3): two independent
// configs, or two independent test cases, each get their own Registry and
// never see each other's parked queues.
type Registry struct {
	mu     sync.Mutex
	parked map[string]diskqueue.Queue
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{parked: make(map[string]diskqueue.Queue)}
}

// take removes and returns the parked queue for persistName, if any.
func (r *Registry) take(persistName string) (diskqueue.Queue, bool) {
	if persistName == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.parked[persistName]
	if ok {
		delete(r.parked, persistName)
	}
	return q, ok
}

// park stashes q under persistName for a later Acquire to pick back up.
func (r *Registry) park(persistName string, q diskqueue.Queue) {
	if persistName == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parked[persistName] = q
}

// dropIncompatible closes and discards a parked queue whose reliable flag
// no longer matches the requested one, logging at Warn — §7's
// IncompatibleSuccessor.
func dropIncompatible(logger *logp.Logger, persistName string, q diskqueue.Queue) {
	logger.Warnf("incompatible successor for persist-name %s: reliable flag changed, discarding parked queue", persistName)
	q.Close()
}
