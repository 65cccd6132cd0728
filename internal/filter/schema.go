// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one whitelisted, filterable field of a table.
type Field struct {
	Name      string      `yaml:"-"`
	Column    string      `yaml:"column"`
	Type      ValueType   `yaml:"type"`
	Operators OperatorSet `yaml:"operators"`
	Sortable  bool        `yaml:"sortable"`
}

// Table is the whitelist for one table.
type Table struct {
	Name        string           `yaml:"name"`
	PrimaryKey  string           `yaml:"primaryKey"`
	DefaultSort string           `yaml:"defaultSort"`
	Columns     []string         `yaml:"columns"`
	Fields      map[string]Field `yaml:"fields"`
}

// Field looks up a whitelisted field by name.
func (t *Table) Field(name string) (Field, bool) {
	f, ok := t.Fields[name]
	return f, ok
}

// SortableFields lists the names of sortable fields in order.
func (t *Table) SortableFields() []string {
	var names []string
	for name, f := range t.Fields {
		if f.Sortable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (t *Table) projection() []string {
	if len(t.Columns) == 0 {
		return []string{"*"}
	}
	return t.Columns
}

func (t *Table) validate() error {
	if !identPattern.MatchString(t.Name) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidSchema, t.Name)
	}
	if !identPattern.MatchString(t.PrimaryKey) {
		return fmt.Errorf("%w: table %s: invalid primary key %q", ErrInvalidSchema, t.Name, t.PrimaryKey)
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("%w: table %s has no fields", ErrInvalidSchema, t.Name)
	}
	for _, col := range t.Columns {
		if !identPattern.MatchString(col) {
			return fmt.Errorf("%w: table %s: invalid column %q", ErrInvalidSchema, t.Name, col)
		}
	}
	for name, f := range t.Fields {
		if f.Column == "" || !identPattern.MatchString(f.Column) {
			return fmt.Errorf("%w: %s.%s: invalid column %q", ErrInvalidSchema, t.Name, name, f.Column)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("%w: %s.%s: unknown type %q", ErrInvalidSchema, t.Name, name, f.Type)
		}
		if len(f.Operators) == 0 {
			return fmt.Errorf("%w: %s.%s has no operators", ErrInvalidSchema, t.Name, name)
		}
		for _, op := range f.Operators {
			if !op.Valid() || !f.Type.Supports(op) {
				return fmt.Errorf("%w: %s.%s: operator %q not valid for %s", ErrInvalidSchema, t.Name, name, op, f.Type)
			}
		}
	}
	def, ok := t.Fields[t.DefaultSort]
	if !ok || !def.Sortable {
		return fmt.Errorf("%w: table %s: default sort %q is not a sortable field", ErrInvalidSchema, t.Name, t.DefaultSort)
	}
	return nil
}

// Registry maps table names to their whitelists. It is built once and is
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	tables map[string]*Table
}

// NewRegistry validates and freezes the given tables.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if _, dup := r.tables[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate table %q", ErrInvalidSchema, t.Name)
		}
		frozen := t.clone()
		if err := frozen.validate(); err != nil {
			return nil, err
		}
		r.tables[t.Name] = frozen
	}
	return r, nil
}

// MustNewRegistry is NewRegistry that panics on error.
func MustNewRegistry(tables ...Table) *Registry {
	r, err := NewRegistry(tables...)
	if err != nil {
		panic(err)
	}
	return r
}

func (t Table) clone() *Table {
	out := t
	out.Columns = slices.Clone(t.Columns)
	out.Fields = make(map[string]Field, len(t.Fields))
	for name, f := range t.Fields {
		f.Name = name
		f.Operators = slices.Clone(f.Operators)
		out.Fields[name] = f
	}
	return &out
}

// HasTable reports whether name is registered.
func (r *Registry) HasTable(name string) bool {
	_, ok := r.tables[name]
	return ok
}

// Table returns the whitelist for name. An unknown table is a programming
// error and panics with ErrUnknownTable.
func (r *Registry) Table(name string) *Table {
	t, ok := r.tables[name]
	if !ok {
		panic(fmt.Errorf("%w: %q", ErrUnknownTable, name))
	}
	return t
}

// AllowedFields returns a copy of the field whitelist for table.
func (r *Registry) AllowedFields(table string) map[string]Field {
	return maps.Clone(r.Table(table).Fields)
}

// Tables lists registered table names in order.
func (r *Registry) Tables() []string {
	return slices.Sorted(maps.Keys(r.tables))
}

type registryFile struct {
	Tables []Table `yaml:"tables"`
}

// ParseRegistry builds a Registry from YAML. A field without a column uses
// its own name; a field without operators gets the defaults for its type.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	for i := range file.Tables {
		t := &file.Tables[i]
		for name, f := range t.Fields {
			if f.Column == "" {
				f.Column = name
			}
			f.Type = ValueType(strings.ToLower(string(f.Type)))
			if f.Operators == nil {
				f.Operators = DefaultOperators(f.Type)
			}
			t.Fields[name] = f
		}
	}
	return NewRegistry(file.Tables...)
}

// LoadRegistryFile reads a YAML schema file from disk.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return ParseRegistry(data)
}
