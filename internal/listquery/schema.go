package listquery

import "strings"

// Field describes one sortable/searchable column of a record type.
type Field[T any] struct {
	Name string
	// Value returns the field as text; absent values are "".
	Value func(T) string
	// Numeric fields sort by their parsed float value.
	Numeric bool
	// Searchable fields are part of the substring haystack.
	Searchable bool
}

// Schema is the closed set of fields and exact-match keywords for a record
// type. Keywords are matched against the normalized (trimmed, lower-cased)
// search term.
type Schema[T any] struct {
	Fields      []Field[T]
	Keywords    map[string]func(T) bool
	DefaultSort string
	DefaultDir  Direction
}

// Field looks up a field by name.
func (s Schema[T]) Field(name string) (Field[T], bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}

// SortFields returns the names of all fields, in declaration order.
func (s Schema[T]) SortFields() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func (s Schema[T]) haystack(r T) string {
	var b strings.Builder
	first := true
	for _, f := range s.Fields {
		if !f.Searchable {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(strings.ToLower(f.Value(r)))
	}
	return b.String()
}
