package schema

// Schema represents a complete database schema
type Schema struct {
	Tables []Table
}

// Table represents a database table
type Table struct {
	Name       string
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
}

// Column represents a table column
type Column struct {
	Name         string
	Type         string // length-qualified where the database reports one, e.g. varchar(60)
	Nullable     bool
	DefaultValue *string
	IsUnique     bool
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	Cardinality  string // 1:1, 1:N, N:1
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// Table returns the named table, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasUniqueIndexOn reports whether a single-column unique index (or a unique
// column constraint) covers column.
func (t *Table) HasUniqueIndexOn(column string) bool {
	for _, idx := range t.Indexes {
		if idx.IsUnique && len(idx.Columns) == 1 && idx.Columns[0] == column {
			return true
		}
	}
	if c := t.Column(column); c != nil {
		return c.IsUnique
	}
	return false
}
