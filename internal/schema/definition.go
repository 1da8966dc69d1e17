package schema

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidDefinition = errors.New("invalid schema definition")

// Definition names a target table and the store-native script that creates
// it. Values are immutable once loaded.
type Definition struct {
	Table  string
	Script string
	Source string // file the definition was read from
}

// DefinitionError reports a definition file that could not be used.
type DefinitionError struct {
	Source string
	Err    error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("schema definition %s: %v", e.Source, e.Err)
}

func (e *DefinitionError) Unwrap() []error {
	return []error{ErrInvalidDefinition, e.Err}
}

// yamlDefinition is the on-disk YAML shape:
//
//	table: Account
//	script: |
//	  CREATE TABLE Account (...);
type yamlDefinition struct {
	Table  string `yaml:"table"`
	Script string `yaml:"script"`
}

// xmlDefinition accepts the <BusinessObject> documents used by older
// definition sets. The table name may be an attribute or an element.
type xmlDefinition struct {
	XMLName  xml.Name `xml:"BusinessObject"`
	NameAttr string   `xml:"Name,attr"`
	Name     string   `xml:"Name"`
	Script   string   `xml:"Script"`
}

// Load reads every definition file in fsys's root directory in lexical
// order. Files that cannot be read or parsed, or that lack a table name or
// script, are returned as *DefinitionError values and left out of the
// result. Unknown extensions are ignored.
func Load(fsys fs.FS) ([]Definition, []error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, []error{&DefinitionError{Source: ".", Err: err}}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		defs []Definition
		errs []error
		seen = make(map[string]string)
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(path.Ext(name))
		if ext != ".yaml" && ext != ".yml" && ext != ".xml" {
			continue
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = append(errs, &DefinitionError{Source: name, Err: err})
			continue
		}

		def, err := Parse(name, data)
		if err != nil {
			errs = append(errs, &DefinitionError{Source: name, Err: err})
			continue
		}

		key := strings.ToLower(def.Table)
		if prev, dup := seen[key]; dup {
			errs = append(errs, &DefinitionError{
				Source: name,
				Err:    fmt.Errorf("table %q already defined by %s", def.Table, prev),
			})
			continue
		}
		seen[key] = name
		defs = append(defs, def)
	}
	return defs, errs
}

// Parse decodes a single definition; the format is chosen by the source's
// extension.
func Parse(source string, data []byte) (Definition, error) {
	var table, script string

	switch strings.ToLower(path.Ext(source)) {
	case ".yaml", ".yml":
		var y yamlDefinition
		if err := yaml.Unmarshal(data, &y); err != nil {
			return Definition{}, fmt.Errorf("parse yaml: %w", err)
		}
		table, script = y.Table, y.Script
	case ".xml":
		var x xmlDefinition
		if err := xml.Unmarshal(data, &x); err != nil {
			return Definition{}, fmt.Errorf("parse xml: %w", err)
		}
		table, script = x.NameAttr, x.Script
		if table == "" {
			table = x.Name
		}
	default:
		return Definition{}, fmt.Errorf("unsupported format %q", path.Ext(source))
	}

	table = strings.TrimSpace(table)
	script = strings.TrimSpace(script)
	if table == "" {
		return Definition{}, errors.New("missing table name")
	}
	if script == "" {
		return Definition{}, errors.New("missing script")
	}
	return Definition{Table: table, Script: script, Source: source}, nil
}
