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

package tool

import (
	"fmt"
)

// Descriptor describes a registered tool for listings.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Transport   Transport      `json:"transport"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry is an immutable set of tools with unique names. Listing order
// is registration order.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry registers tools. A nil tool or a repeated name is an error.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]Tool, len(tools)),
	}
	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("tool %d is nil", i)
		}
		name := t.Name()
		if name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("tool %q already registered", name)
		}
		r.tools = append(r.tools, t)
		r.byName[name] = t
	}
	return r, nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.byName[name]
	return t, ok
}

// Lookup is Get with an ErrNotFound error.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// List returns the registered tools. The slice is a copy.
func (r *Registry) List() []Tool {
	if r == nil {
		return nil
	}
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.Len())
	for _, t := range r.List() {
		names = append(names, t.Name())
	}
	return names
}

// Definitions returns the function-calling definitions sent to the model.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, r.Len())
	for _, t := range r.List() {
		defs = append(defs, ToDefinition(t))
	}
	return defs
}

// Descriptors returns a listing of every tool.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, r.Len())
	for _, t := range r.List() {
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Transport:   t.Transport(),
			Parameters:  t.Schema(),
		})
	}
	return out
}

// CountByTransport returns the number of tools per transport.
func (r *Registry) CountByTransport() map[Transport]int {
	counts := make(map[Transport]int)
	for _, t := range r.List() {
		counts[t.Transport()]++
	}
	return counts
}
