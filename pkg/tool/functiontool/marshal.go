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

package functiontool

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// prepareArgs returns a copy of args with schema defaults filled in and
// scalar strings coerced to the declared number or boolean type. Models
// routinely send "5" for an integer parameter. Undeclared arguments are
// dropped when the schema forbids additional properties.
func prepareArgs(schema map[string]any, args map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	closed := schema["additionalProperties"] == false

	out := make(map[string]any, len(args))
	for k, v := range args {
		if _, declared := props[k]; closed && !declared {
			continue
		}
		out[k] = v
	}

	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		v, present := out[name]
		if !present || v == nil {
			if def, ok := prop["default"]; ok {
				out[name] = def
			}
			continue
		}

		s, isString := v.(string)
		if !isString {
			continue
		}
		s = strings.TrimSpace(s)
		switch prop["type"] {
		case "integer":
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				out[name] = n
			}
		case "number":
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				out[name] = f
			}
		case "boolean":
			if b, err := strconv.ParseBool(s); err == nil {
				out[name] = b
			}
		}
	}
	return out
}

// mapToStruct decodes validated arguments into the typed struct, matching
// fields by their json tag.
func mapToStruct(m map[string]any, target any) error {
	if m == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook:       jsonNumberHook,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("failed to decode args: %w", err)
	}
	return nil
}

// jsonNumberHook unwraps json.Number values produced by UseNumber decoders.
func jsonNumberHook(from, _ reflect.Value) (any, error) {
	if !from.IsValid() {
		return nil, nil
	}
	n, ok := from.Interface().(json.Number)
	if !ok {
		return from.Interface(), nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}
