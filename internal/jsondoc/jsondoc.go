// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package jsondoc validates client-supplied JSON documents against schemas
// reflected from Go types, and splits documents into known members and
// free-form extras.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks documents against one compiled schema. It is safe for
// concurrent use.
type Validator struct {
	name   string
	schema *jschema.Schema
}

// NewValidator reflects a schema from the type of v (a pointer to a struct)
// and compiles it. Members not declared on the type are allowed.
func NewValidator(name string, v any) (*Validator, error) {
	data, err := json.Marshal(reflectSchema(name, v))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", name, err)
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s schema: %w", name, err)
	}

	c := jschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("failed to add %s schema resource: %w", name, err)
	}
	sch, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	return &Validator{name: name, schema: sch}, nil
}

func reflectSchema(name string, v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	reflected := r.Reflect(v)
	reflected.ID = jsonschema.ID("https://deckhall.dev/schemas/" + name + ".schema.json")
	return reflected
}

// Generate renders the schema for v as indented JSON, for publishing to
// clients.
func Generate(name, title string, v any) ([]byte, error) {
	schema := reflectSchema(name, v)
	schema.Title = title
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", name, err)
	}
	return data, nil
}

// MustValidator is NewValidator for package-level schemas built from
// static types.
func MustValidator(name string, v any) *Validator {
	val, err := NewValidator(name, v)
	if err != nil {
		panic(err)
	}
	return val
}

// Validate parses raw and checks it against the schema.
func (v *Validator) Validate(raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%s document is empty", v.name)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return fmt.Errorf("%s does not match schema: %s", v.name, FormatError(err))
	}
	return nil
}

// FormatError flattens a validation error onto one line.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "; ")
}

// Split decodes a JSON object and separates the members named in known from
// everything else. Extras is nil when there are none.
func Split(raw []byte, known ...string) (members, extras map[string]json.RawMessage, err error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if all == nil {
		return nil, nil, fmt.Errorf("document must be a JSON object")
	}

	members = make(map[string]json.RawMessage, len(known))
	for _, k := range known {
		if v, ok := all[k]; ok {
			members[k] = v
			delete(all, k)
		}
	}
	if len(all) > 0 {
		extras = all
	}
	return members, extras, nil
}

// Merge encodes extras and members as one JSON object. Members win over
// extras with the same name.
func Merge(extras map[string]json.RawMessage, members map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extras)+len(members))
	for k, v := range extras {
		out[k] = v
	}
	for k, v := range members {
		out[k] = v
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}
