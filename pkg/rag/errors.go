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

package rag

import "fmt"

// SearchError describes a retrieval failure that is reported to the caller.
type SearchError struct {
	Component string // "embedder" or "vector"
	Operation string
	Message   string
	Query     string
	Err       error
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Component, e.Operation, e.Message)
	if e.Query != "" {
		query := e.Query
		if len([]rune(query)) > 50 {
			query = string([]rune(query)[:50]) + "..."
		}
		msg += fmt.Sprintf(" (query: %q)", query)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

func NewSearchError(component, operation, message, query string, err error) *SearchError {
	return &SearchError{
		Component: component,
		Operation: operation,
		Message:   message,
		Query:     query,
		Err:       err,
	}
}

// IndexError describes a failure while indexing documents into a namespace.
type IndexError struct {
	Namespace  string
	DocumentID string // first document of the failed batch, if any
	Operation  string // "fetch", "embed" or "upsert"
	Err        error
}

func (e *IndexError) Error() string {
	msg := fmt.Sprintf("[%s] index %s failed", e.Namespace, e.Operation)
	if e.DocumentID != "" {
		msg += fmt.Sprintf(" at %s", e.DocumentID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
