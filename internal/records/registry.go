package records

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kinds returns the schemas for every record kind, in declaration order.
func Kinds() []*Schema {
	return registry
}

// KindByPath returns the schema served under the given URL path segment,
// or nil.
func KindByPath(path string) *Schema {
	for _, s := range registry {
		if s.Path == path {
			return s
		}
	}
	return nil
}

var registry = mustLoadKinds()

func mustLoadKinds() []*Schema {
	var doc struct {
		Kinds []*Schema `yaml:"kinds"`
	}
	if err := yaml.Unmarshal(kindsYAML, &doc); err != nil {
		panic(fmt.Sprintf("records: bad embedded kinds.yaml: %v", err))
	}
	if len(doc.Kinds) == 0 {
		panic("records: embedded kinds.yaml declares no kinds")
	}
	seen := map[string]bool{}
	for _, s := range doc.Kinds {
		if s.Kind == "" || s.Path == "" || len(s.Fields) == 0 {
			panic(fmt.Sprintf("records: incomplete kind declaration %q", s.Kind))
		}
		if seen[s.Kind] || seen[s.Path] {
			panic(fmt.Sprintf("records: duplicate kind or path %q/%q", s.Kind, s.Path))
		}
		seen[s.Kind] = true
		seen[s.Path] = true
		for i := range s.Fields {
			f := &s.Fields[i]
			if f.Type == TypeEnum && len(f.Values) == 0 {
				panic(fmt.Sprintf("records: enum field %s.%s has no values", s.Kind, f.Name))
			}
			if f.RequiredWhen != nil && s.Field(f.RequiredWhen.Field) == nil {
				panic(fmt.Sprintf("records: field %s.%s depends on unknown field %q", s.Kind, f.Name, f.RequiredWhen.Field))
			}
		}
	}
	return doc.Kinds
}
