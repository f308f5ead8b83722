// Package records implements the typed portfolio record engine: a
// declarative schema registry for every record kind, generic owner-scoped
// persistence, and the attachment lifecycle tied to each record.
package records

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed kinds.yaml
var kindsYAML []byte

// FieldType enumerates the value types a schema field can hold.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeDate   FieldType = "date"
	TypeBool   FieldType = "bool"
	TypeInt    FieldType = "int"
	TypeEnum   FieldType = "enum"
)

// Condition makes a field mandatory only when a discriminant field holds
// one of the listed values.
type Condition struct {
	Field string   `yaml:"field"`
	AnyOf []string `yaml:"anyOf"`
}

// Field describes one attribute of a record kind.
type Field struct {
	Name         string     `yaml:"name"`
	Type         FieldType  `yaml:"type"`
	Required     bool       `yaml:"required"`
	RequiredWhen *Condition `yaml:"requiredWhen"`
	// Default is applied when the input omits the field. It is parsed
	// with the same rules as user input.
	Default *string `yaml:"default"`
	// DefaultNow substitutes the current time for an omitted date field.
	DefaultNow bool `yaml:"defaultNow"`
	// Values constrains enum fields.
	Values []string `yaml:"values"`
}

// Schema is the declarative rule set for one record kind.
type Schema struct {
	Kind string `yaml:"kind"`
	// Path is the URL path segment the kind is served under.
	Path   string  `yaml:"path"`
	Fields []Field `yaml:"fields"`
}

// Field returns the named field or nil.
func (s *Schema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// required reports whether f must be present given the raw input.
func (f *Field) required(input map[string]string) bool {
	if f.Required {
		return true
	}
	if f.RequiredWhen != nil {
		return slices.Contains(f.RequiredWhen.AnyOf, strings.TrimSpace(input[f.RequiredWhen.Field]))
	}
	return false
}

// Coerce validates the raw string input against the schema and converts
// it into typed field values. Unknown input keys are ignored. Omitted
// optional fields with a default get the default; other omitted optional
// fields are left out entirely. Dates normalize to RFC 3339 UTC strings
// and integers to float64 so values survive a JSON round trip unchanged.
func (s *Schema) Coerce(input map[string]string, now func() time.Time) (map[string]any, error) {
	var missing []string
	out := make(map[string]any, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		raw, ok := input[f.Name]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			if f.required(input) {
				missing = append(missing, f.Name)
				continue
			}
			if f.DefaultNow {
				out[f.Name] = now().UTC().Format(time.RFC3339)
				continue
			}
			if f.Default != nil {
				raw = *f.Default
				// An empty default is a legitimate value, not an omission.
				if raw == "" {
					out[f.Name] = ""
					continue
				}
			} else {
				continue
			}
		}
		v, err := f.parse(raw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	if len(missing) != 0 {
		return nil, missingFields(missing)
	}
	return out, nil
}

func (f *Field) parse(raw string) (any, error) {
	switch f.Type {
	case TypeString:
		return raw, nil
	case TypeDate:
		t, err := parseDate(raw)
		if err != nil {
			return nil, invalidField(f.Name, "not a date")
		}
		return t.UTC().Format(time.RFC3339), nil
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidField(f.Name, "not a boolean")
		}
		return b, nil
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalidField(f.Name, "not an integer")
		}
		return float64(n), nil
	case TypeEnum:
		if !slices.Contains(f.Values, raw) {
			return nil, invalidField(f.Name, "not one of "+strings.Join(f.Values, "|"))
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
	}
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
