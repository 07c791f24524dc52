// Package schema derives LLM response schemas from Go structs and validates
// decoded responses against them.
package schema

// FieldType is a JSON Schema primitive type.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field is one property of a response schema, derived from a struct field.
type Field struct {
	Name        string    `json:"name,omitempty"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`

	// Items describes the element of an array field.
	Items *Field `json:"items,omitempty"`
	// Properties lists the members of an object field.
	Properties []Field `json:"properties,omitempty"`

	Enum       []string `json:"enum,omitempty"`
	Validators []string `json:"validators,omitempty"`
	Examples   []string `json:"examples,omitempty"`
}

// HasProperties reports whether f is an object with declared members.
// Map-typed fields are objects without them.
func (f Field) HasProperties() bool {
	return f.Type == TypeObject && len(f.Properties) > 0
}

// Path joins f's name onto a parent path with a dot.
func (f Field) Path(parent string) string {
	if parent == "" {
		return f.Name
	}
	return parent + "." + f.Name
}

// TypeLabel is the type as shown to the model, e.g. "array of string".
func (f Field) TypeLabel() string {
	if f.Type == TypeArray && f.Items != nil {
		return "array of " + string(f.Items.Type)
	}
	return string(f.Type)
}

// Children returns the nested fields of f along with the path prefix they
// sit under. Array elements use path + "[]".
func (f Field) Children(path string) (string, []Field) {
	switch {
	case f.HasProperties():
		return path, f.Properties
	case f.Type == TypeArray && f.Items != nil && f.Items.HasProperties():
		return path + "[]", f.Items.Properties
	}
	return "", nil
}

// ValidationError is one rule a decoded response failed.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
