// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"time"

	"github.com/stargazer-ai/stargazer/pkg/agent"
)

// DefaultHeartbeat is the idle interval after which a heartbeat is written.
const DefaultHeartbeat = 30 * time.Second

// PumpStats describes a finished stream.
type PumpStats struct {
	Frames     int
	Heartbeats int
	// Errored is set when an error frame was written.
	Errored bool
	// Ended is set when the stream_end frame was written.
	Ended bool
}

// Pump writes every event to enc in arrival order. A heartbeat is written
// whenever no frame was written for the heartbeat interval. When events is
// closed, exactly one stream_end frame is written and Pump returns.
//
// Pump returns early with ctx's error when the client goes away, or with
// the write error when a frame cannot be delivered. In both cases the
// caller must cancel the producer.
func Pump(ctx context.Context, enc *Encoder, events <-chan agent.Event, heartbeat time.Duration, sessionID string) (PumpStats, error) {
	var stats PumpStats
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	idle := time.NewTimer(heartbeat)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()

		case <-idle.C:
			if err := enc.WriteHeartbeat(); err != nil {
				return stats, err
			}
			stats.Heartbeats++
			idle.Reset(heartbeat)

		case ev, ok := <-events:
			if !ok {
				if err := enc.WriteEnd(sessionID, time.Now()); err != nil {
					return stats, err
				}
				stats.Frames++
				stats.Ended = true
				return stats, nil
			}
			// The terminal frame is owned here.
			if ev.Kind == agent.EventStreamEnd {
				continue
			}
			if err := enc.WriteEvent(ev); err != nil {
				return stats, err
			}
			stats.Frames++
			if ev.Kind == agent.EventError {
				stats.Errored = true
			}
			idle.Reset(heartbeat)
		}
	}
}
