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

package rag

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultToolLimit caps the knowledge points listed in a tool result.
const DefaultToolLimit = 5

const (
	// PromptHeader introduces the reference block in the system prompt.
	PromptHeader = "Use the following reference material from the astrology knowledge base when it is relevant:"

	msgNoResults = "No relevant astrology knowledge found."
	toolHeader   = "Relevant astrology knowledge:"
)

// FormatForPrompt renders items as the reference block appended to the
// system prompt. It returns "" for no items.
func FormatForPrompt(items []ContextItem) string {
	if len(items) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(items))
	for i, item := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "Reference %d (score %.3f):\n", i+1, item.Score)
		fmt.Fprintf(&b, "Question: %s\n", item.Question)
		fmt.Fprintf(&b, "Answer: %s", item.Answer)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatForTool renders unfiltered search results as a knowledge-point list,
// keeping only items scoring at least threshold and at most limit of them.
func FormatForTool(items []ContextItem, threshold float64, limit int) string {
	if len(items) == 0 {
		return msgNoResults
	}
	if limit <= 0 {
		limit = DefaultToolLimit
	}

	kept := make([]ContextItem, 0, len(items))
	for _, item := range items {
		if item.Score >= threshold {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return fmt.Sprintf("No knowledge found with similarity above %s.",
			strconv.FormatFloat(threshold, 'g', -1, 64))
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}

	var b strings.Builder
	b.WriteString(toolHeader)
	b.WriteString("\n\n")
	for i, item := range kept {
		fmt.Fprintf(&b, "[Knowledge point %d] (similarity: %.3f)\n", i+1, item.Score)
		if item.Question != "" {
			fmt.Fprintf(&b, "Question: %s\n", item.Question)
		}
		if item.Answer != "" {
			fmt.Fprintf(&b, "Answer: %s\n", item.Answer)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
