// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package server exposes the agent over HTTP.
//
// Endpoints:
//
//	GET  /, /health     liveness and version
//	GET  /agent/status  ready or not_initialized, with agent details
//	GET  /tools         registered tools
//	POST /chat/stream   server-sent events, one frame per agent event
//	POST /chat          the same run reduced to one JSON response
//	GET  /charts/*      rendered natal charts, when a charts directory is set
//	GET  /metrics       Prometheus exposition, when metrics are enabled
//
// A stream always ends with exactly one stream_end frame while the client
// is connected. Idle streams receive ": heartbeat" comment frames.
package server
