// Copyright (c) 2026 John Earle
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

package llm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/bcem/butler/internal/errs"
)

// Decode validates text against schema and unmarshals it into out. Any
// mismatch is a *errs.ParseError carrying the raw text.
func Decode(text string, schema *genai.Schema, schemaName string, out any) error {
	raw := stripFences(text)

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &errs.ParseError{Op: schemaName, Raw: text, Err: err}
	}
	if schema != nil {
		if err := validate(doc, schema, "$"); err != nil {
			return &errs.ParseError{Op: schemaName, Raw: text, Err: err}
		}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &errs.ParseError{Op: schemaName, Raw: text, Err: err}
	}
	return nil
}

// stripFences removes a ```json fence some models wrap around output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func validate(v any, s *genai.Schema, path string) error {
	if v == nil {
		if s.Nullable != nil && *s.Nullable {
			return nil
		}
		return fmt.Errorf("%s: null not allowed", path)
	}

	switch s.Type {
	case genai.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: want object, got %T", path, v)
		}
		for _, key := range s.Required {
			if _, ok := obj[key]; !ok {
				return fmt.Errorf("%s: missing required field %q", path, key)
			}
		}
		for key, val := range obj {
			prop, ok := s.Properties[key]
			if !ok {
				continue
			}
			if err := validate(val, prop, path+"."+key); err != nil {
				return err
			}
		}
	case genai.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%s: want array, got %T", path, v)
		}
		if s.Items == nil {
			return nil
		}
		for i, item := range arr {
			if err := validate(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case genai.TypeString:
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: want string, got %T", path, v)
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return fmt.Errorf("%s: %q not in %v", path, str, s.Enum)
		}
	case genai.TypeNumber:
		if _, ok := v.(json.Number); !ok {
			return fmt.Errorf("%s: want number, got %T", path, v)
		}
	case genai.TypeInteger:
		n, ok := v.(json.Number)
		if !ok {
			return fmt.Errorf("%s: want integer, got %T", path, v)
		}
		if _, err := n.Int64(); err != nil {
			return fmt.Errorf("%s: want integer, got %s", path, n)
		}
	case genai.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%s: want boolean, got %T", path, v)
		}
	}
	return nil
}
