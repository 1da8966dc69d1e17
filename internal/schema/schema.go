// Package schema holds store introspection types and the declarative table
// definitions the provisioner applies.
package schema

// Table represents a database table.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Column represents a table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  string
	IsPK     bool
}

// Index represents a table index.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// TableNames returns the names of tables in order.
func TableNames(tables []Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}
