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

// Package agent implements the tool-augmented reasoning loop behind every
// chat request.
//
// A request moves through these states:
//
//	start      retrieve knowledge context (optional), emit RagContext
//	reasoning  stream one model turn, emit TokenChunk per increment
//	dispatch   run each requested tool, emit ToolCallStart then ToolCallEnd
//	(loop)     back to reasoning with the tool results, emit ModelStart
//	end        a turn without tool requests, the turn cap, or a failure
//
// The first reasoning turn of a request is implicit: ModelStart is only
// emitted for turns that follow tool results. A failure produces exactly
// one Error event with a client-safe message. The terminal StreamEnd
// belongs to the transport and is never produced here.
//
// # Usage
//
//	a, err := agent.New(agent.Config{LLM: llm, Tools: registry, Retriever: retriever})
//	for ev := range a.Stream(ctx, agent.Input{Query: "What is my rising sign?", IncludeRAG: true}) {
//	    // encode ev
//	}
package agent
