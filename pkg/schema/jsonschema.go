package schema

import (
	"fmt"
	"strings"
)

// ToJSONSchema converts the schema to JSON Schema format for LLM structured output.
func (s Schema) ToJSONSchema() (map[string]any, error) {
	out := objectSchema(s.Fields)
	if s.Description != "" {
		out["description"] = s.Description
	}
	return out, nil
}

// objectSchema builds a strict object: OpenAI and OpenRouter reject strict
// schemas that allow additional properties.
func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}

	out := map[string]any{
		"type":                 string(TypeObject),
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func fieldSchema(f Field) map[string]any {
	var out map[string]any
	switch {
	case f.HasProperties():
		out = objectSchema(f.Properties)
	case f.Type == TypeArray && f.Items != nil:
		out = map[string]any{
			"type":  string(TypeArray),
			"items": fieldSchema(*f.Items),
		}
	default:
		out = map[string]any{"type": string(f.Type)}
	}

	if f.Description != "" {
		out["description"] = f.Description
	}
	if len(f.Examples) > 0 {
		out["examples"] = f.Examples
	}
	if len(f.Enum) > 0 {
		out["enum"] = f.Enum
	}
	return out
}

// ToPromptDescription renders the schema as a prompt section. Each field is
// one line keyed by its dotted path; array elements are addressed as name[].
func (s Schema) ToPromptDescription() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n", s.heading("output"))
	if s.Description != "" {
		sb.WriteString(s.Description)
	} else {
		sb.WriteString("Return the following structured data.\n")
	}
	fmt.Fprintf(&sb, "\n\n## %s\n", s.heading("fields"))

	for _, f := range s.Fields {
		describeField(&sb, "", f)
	}
	return sb.String()
}

// heading prefixes a section name with the schema title, if any.
func (s Schema) heading(section string) string {
	if s.Title == "" {
		return strings.ToUpper(section[:1]) + section[1:]
	}
	return s.Title + " " + section
}

func describeField(sb *strings.Builder, parent string, f Field) {
	path := f.Path(parent)

	fmt.Fprintf(sb, "- %s (%s", path, f.TypeLabel())
	if f.Required {
		sb.WriteString(", required")
	}
	sb.WriteString(")")
	if f.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(f.Description)
	}
	if len(f.Enum) > 0 {
		fmt.Fprintf(sb, " One of: %s.", strings.Join(f.Enum, ", "))
	}
	if len(f.Examples) > 0 {
		fmt.Fprintf(sb, " e.g. %s.", strings.Join(f.Examples, ", "))
	}
	sb.WriteString("\n")

	prefix, children := f.Children(path)
	for _, c := range children {
		describeField(sb, prefix, c)
	}
}
