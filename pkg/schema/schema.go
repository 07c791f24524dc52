package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Schema defines the structure the model must return.
type Schema struct {
	Name        string  `json:"name"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`

	target   reflect.Type // Original struct type for unmarshaling
	validate *validator.Validate
}

// SchemaOption configures schema creation.
type SchemaOption func(*schemaBuilder)

type schemaBuilder struct {
	title       string
	description string
}

// WithTitle names the schema in prompt headings, e.g. "Ad kit" gives
// "## Ad kit fields".
func WithTitle(title string) SchemaOption {
	return func(b *schemaBuilder) {
		b.title = title
	}
}

// WithDescription sets the schema description (the NLP context).
func WithDescription(desc string) SchemaOption {
	return func(b *schemaBuilder) {
		b.description = desc
	}
}

// NewSchema creates a Schema from a struct type using reflection.
//
// Recognised struct tags:
//
//	json        field name; omitempty marks the field optional
//	description field description shown to the model
//	enum        allowed values separated by "|"
//	examples    example values separated by ","
//	validate    go-playground/validator rules
func NewSchema[T any](opts ...SchemaOption) (Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return Schema{}, fmt.Errorf("schema must be created from a struct type, got interface")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("schema must be created from a struct type, got %v", t.Kind())
	}

	builder := &schemaBuilder{}
	for _, opt := range opts {
		opt(builder)
	}

	fields, err := extractFields(t)
	if err != nil {
		return Schema{}, err
	}

	return Schema{
		Name:        t.Name(),
		Title:       builder.title,
		Description: builder.description,
		Fields:      fields,
		target:      t,
		validate:    newValidator(),
	}, nil
}

// MustSchema is NewSchema for package-level schemas; it panics on error.
func MustSchema[T any](opts ...SchemaOption) Schema {
	s, err := NewSchema[T](opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// newValidator reports field paths using JSON names so validation feedback
// matches what the model produced.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if sf.Tag.Get("json") == "-" {
			return "-"
		}
		return getJSONName(sf)
	})
	_ = v.RegisterValidation("enum", validateEnum)
	return v
}

// validateEnum implements the "enum" rule: a non-empty string must be one
// of the values in the field's enum tag.
func validateEnum(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	parent := fl.Parent()
	if parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}
	if parent.Kind() != reflect.Struct {
		return true
	}
	sf, ok := parent.Type().FieldByName(fl.StructFieldName())
	if !ok {
		return true
	}
	for _, allowed := range strings.Split(sf.Tag.Get("enum"), "|") {
		if value == allowed {
			return true
		}
	}
	return false
}

// extractFields recursively extracts field definitions from a struct type.
func extractFields(t reflect.Type) ([]Field, error) {
	fields := make([]Field, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("json") == "-" {
			continue
		}

		field, err := extractFieldFromType(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		field.Name = getJSONName(sf)
		field.Description = sf.Tag.Get("description")
		field.Required = !hasOmitempty(sf) && sf.Type.Kind() != reflect.Ptr
		field.Validators = parseValidators(sf.Tag.Get("validate"))

		if examples := sf.Tag.Get("examples"); examples != "" {
			field.Examples = strings.Split(examples, ",")
		}
		if enum := sf.Tag.Get("enum"); enum != "" {
			field.Enum = strings.Split(enum, "|")
		}

		fields = append(fields, field)
	}

	return fields, nil
}

// extractFieldFromType extracts a Field definition from a reflect.Type.
func extractFieldFromType(t reflect.Type) (Field, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	field := Field{}

	switch t.Kind() {
	case reflect.String:
		field.Type = TypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		field.Type = TypeInteger
	case reflect.Float32, reflect.Float64:
		field.Type = TypeNumber
	case reflect.Bool:
		field.Type = TypeBoolean
	case reflect.Slice:
		field.Type = TypeArray
		itemField, err := extractFieldFromType(t.Elem())
		if err != nil {
			return Field{}, err
		}
		field.Items = &itemField
	case reflect.Struct:
		field.Type = TypeObject
		props, err := extractFields(t)
		if err != nil {
			return Field{}, err
		}
		field.Properties = props
	case reflect.Map:
		field.Type = TypeObject
	default:
		return Field{}, fmt.Errorf("unsupported type: %v", t.Kind())
	}

	return field, nil
}

// getJSONName returns the JSON field name from struct tags.
func getJSONName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return sf.Name
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		return parts[0]
	}
	return sf.Name
}

// hasOmitempty checks if the json tag contains omitempty.
func hasOmitempty(sf reflect.StructField) bool {
	tag := sf.Tag.Get("json")
	return strings.Contains(tag, "omitempty")
}

// parseValidators extracts validator tags.
func parseValidators(tag string) []string {
	if tag == "" {
		return nil
	}
	return strings.Split(tag, ",")
}

// Unmarshal parses JSON into a new value of the schema's struct type and
// returns a pointer to it.
func (s Schema) Unmarshal(data []byte) (any, error) {
	if s.target == nil {
		return nil, errors.New("schema has no target type")
	}

	v := reflect.New(s.target).Interface()
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return v, nil
}

// Validate checks the data against validation rules.
func (s Schema) Validate(data any) []ValidationError {
	if s.validate == nil {
		return nil
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return []ValidationError{{Field: s.Name, Message: "is required"}}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	err := s.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: s.Name, Message: err.Error()}}
	}

	var errs []ValidationError
	for _, e := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fieldPath(e),
			Message: formatValidationError(e),
			Value:   e.Value(),
		})
	}
	return errs
}

// fieldPath drops the root struct name from the error namespace, giving
// e.g. "personaVariants[0].persona".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s item(s)", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "enum":
		return "is not one of the allowed values"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
