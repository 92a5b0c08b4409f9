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
	"github.com/elastic/elastic-agent-libs/monitoring"
)

// Observer exposes a queue's counters under a monitoring.Registry,
// one instance per persist-name, the way the teacher pack registers
// per-component metrics under a named registry rather than global
// package-level counters.
type Observer struct {
	storedMessages  *monitoring.Uint
	droppedMessages *monitoring.Uint
	rewoundMessages *monitoring.Uint
}

// NewObserver registers a queue's counters under reg, namespaced by
// persistName. With a nil registry the counters are created through
// monitoring.NewUint with a nil registry, named stored/dropped/rewound and
// not namespaced by persistName; the methods are all safe to call.
func NewObserver(reg *monitoring.Registry, persistName string) *Observer {
	if reg == nil {
		return &Observer{
			storedMessages:  monitoring.NewUint(nil, "stored"),
			droppedMessages: monitoring.NewUint(nil, "dropped"),
			rewoundMessages: monitoring.NewUint(nil, "rewound"),
		}
	}
	ns := reg.NewRegistry(persistName)
	return &Observer{
		storedMessages:  monitoring.NewUint(ns, "stored_messages"),
		droppedMessages: monitoring.NewUint(ns, "dropped_messages"),
		rewoundMessages: monitoring.NewUint(ns, "rewound_messages"),
	}
}

func (o *Observer) recordPush()           { o.storedMessages.Inc() }
func (o *Observer) recordPop()            { o.storedMessages.Dec() }
func (o *Observer) recordDrop()           { o.droppedMessages.Inc() }
func (o *Observer) recordRewind(n uint64) { o.rewoundMessages.Add(n) }
