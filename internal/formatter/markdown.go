package formatter

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tordrt/levelschema/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	if _, err := io.WriteString(f.writer, "# Database Schema\n\n"); err != nil {
		return err
	}

	for _, table := range s.Tables {
		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes a single table section. The multi-file formatter uses it
// for per-table files.
func (f *MarkdownFormatter) FormatTable(table schema.Table) error {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", table.Name)
	b.WriteString("### Columns\n\n")
	for _, col := range table.Columns {
		if c := markdownConstraints(col, table.PrimaryKey); c != "" {
			fmt.Fprintf(&b, "- **%s:** %s, %s\n", col.Name, col.Type, c)
		} else {
			fmt.Fprintf(&b, "- **%s:** %s\n", col.Name, col.Type)
		}
	}
	b.WriteString("\n")

	if len(table.Relations) > 0 {
		b.WriteString("### References\n\n")
		for _, rel := range table.Relations {
			fmt.Fprintf(&b, "- %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality)
		}
		b.WriteString("\n")
	}

	if len(table.Indexes) > 0 {
		b.WriteString("### Indexes\n\n")
		for _, idx := range table.Indexes {
			if idx.IsUnique {
				fmt.Fprintf(&b, "- %s on (%s), unique\n", idx.Name, strings.Join(idx.Columns, ", "))
			} else {
				fmt.Fprintf(&b, "- %s on (%s)\n", idx.Name, strings.Join(idx.Columns, ", "))
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func markdownConstraints(col schema.Column, primaryKey []string) string {
	var constraints []string

	if slices.Contains(primaryKey, col.Name) {
		constraints = append(constraints, "PK")
	}
	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.DefaultValue != nil {
		constraints = append(constraints, "DEFAULT "+*col.DefaultValue)
	}

	return strings.Join(constraints, ", ")
}
