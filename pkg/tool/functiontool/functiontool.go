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

// Package functiontool creates tools from typed Go functions.
//
// The argument schema is generated from struct tags once, at construction.
// Every call validates the model's arguments against that schema before
// they are decoded into the typed struct, so the function body only ever
// sees arguments that passed validation.
//
// # Basic Usage
//
//	type SearchArgs struct {
//	    Query string `json:"query" jsonschema:"required,description=Search query"`
//	    TopK  int    `json:"top_k,omitempty" jsonschema:"description=Number of results,default=5,minimum=1,maximum=20"`
//	}
//
//	searchTool, err := functiontool.New(
//	    functiontool.Config{Name: "search", Description: "Search the knowledge base"},
//	    func(ctx context.Context, args SearchArgs) (string, error) {
//	        // Implementation
//	    },
//	)
//
// The result is returned to the model as-is when it is a string and as JSON
// otherwise. The client sees Display() when the result implements Displayer.
package functiontool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/stargazer-ai/stargazer/pkg/tool"
)

// Config defines the configuration for a function tool.
type Config struct {
	// Name is the unique identifier for this tool (required).
	Name string

	// Description explains what the tool does (required).
	Description string
}

// Displayer is implemented by results that render differently for the
// client than for the model.
type Displayer interface {
	Display() string
}

// New creates a tool from a typed function.
func New[Args, Out any](cfg Config, fn func(context.Context, Args) (Out, error)) (tool.Tool, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("function is required for %s", cfg.Name)
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", cfg.Name, err)
	}

	compiled, err := compileSchema(cfg.Name, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", cfg.Name, err)
	}

	return &functionTool[Args, Out]{
		config:   cfg,
		fn:       fn,
		schema:   schema,
		compiled: compiled,
	}, nil
}

type functionTool[Args, Out any] struct {
	config   Config
	fn       func(context.Context, Args) (Out, error)
	schema   map[string]any
	compiled *jsonschema.Schema
}

func (t *functionTool[Args, Out]) Name() string {
	return t.config.Name
}

func (t *functionTool[Args, Out]) Description() string {
	return t.config.Description
}

func (t *functionTool[Args, Out]) Schema() map[string]any {
	return t.schema
}

func (t *functionTool[Args, Out]) Transport() tool.Transport {
	return tool.TransportInProcess
}

// Call validates args, decodes them and runs the function.
func (t *functionTool[Args, Out]) Call(ctx context.Context, args map[string]any) (tool.Result, error) {
	args = prepareArgs(t.schema, args)

	if err := validateArgs(t.compiled, args); err != nil {
		return tool.Result{}, fmt.Errorf("invalid arguments for %s: %w", t.config.Name, err)
	}

	var typedArgs Args
	if err := mapToStruct(args, &typedArgs); err != nil {
		return tool.Result{}, fmt.Errorf("invalid arguments for %s: %w", t.config.Name, err)
	}

	out, err := t.fn(ctx, typedArgs)
	if err != nil {
		return tool.Result{}, err
	}
	return toResult(out), nil
}

func toResult(out any) tool.Result {
	switch v := out.(type) {
	case tool.Result:
		return v
	case string:
		return tool.Text(v)
	}

	display := ""
	if d, ok := out.(Displayer); ok {
		display = d.Display()
	} else if data, err := json.Marshal(out); err == nil {
		display = string(data)
	} else {
		display = fmt.Sprint(out)
	}
	return tool.Result{Value: out, Display: display}
}

func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if cfg.Description == "" {
		return fmt.Errorf("tool description is required")
	}
	return nil
}

var _ tool.Tool = (*functionTool[struct{}, string])(nil)
