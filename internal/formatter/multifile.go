package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/levelschema/internal/schema"
)

const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// MultiFileFormatter writes schema to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file plus one file per table.
func (f *MultiFileFormatter) Format(s *schema.Schema) error {
	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) error { return f.writeOverview(w, s) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range s.Tables {
		if err := f.writeFile(table.Name, func(w io.Writer) error { return f.writeTable(w, table, s) }); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name+f.extension()))
	if err != nil {
		return err
	}

	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, s *schema.Schema) error {
	var b strings.Builder

	if f.OutputFormat == FormatMarkdown {
		fmt.Fprintf(&b, "# Schema Overview\n\nEach table has a corresponding file: `<table_name>%s`\n\n## Tables\n\n", f.extension())
	} else {
		fmt.Fprintf(&b, "SCHEMA OVERVIEW\nEach table has a file: <table_name>%s\n\n", f.extension())
	}

	tables := make([]schema.Table, len(s.Tables))
	copy(tables, s.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	for _, table := range tables {
		if f.OutputFormat == FormatMarkdown {
			fmt.Fprintf(&b, "- **%s**", table.Name)
		} else {
			b.WriteString(table.Name)
		}
		if len(table.Relations) > 0 {
			var targets []string
			for _, rel := range table.Relations {
				targets = append(targets, rel.TargetTable)
			}
			fmt.Fprintf(&b, " (references: %s)", strings.Join(targets, ", "))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *MultiFileFormatter) writeTable(w io.Writer, table schema.Table, s *schema.Schema) error {
	incoming := findIncomingRelations(table.Name, s)

	if f.OutputFormat != FormatMarkdown {
		if err := NewTextFormatter(w).FormatTable(table); err != nil {
			return err
		}
		if len(incoming) == 0 {
			return nil
		}
		var b strings.Builder
		b.WriteString("\n  REFERENCED BY:\n")
		for _, rel := range incoming {
			fmt.Fprintf(&b, "    %s.%s -> %s (%s)\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rel.Cardinality)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	if err := NewMarkdownFormatter(w).FormatTable(table); err != nil {
		return err
	}
	if len(incoming) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("### Referenced by\n\n")
	for _, rel := range incoming {
		fmt.Fprintf(&b, "- %s.%s → %s (%s)\n", rel.SourceTable, rel.SourceColumn, rel.TargetColumn, rel.Cardinality)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// IncomingRelation represents a relationship pointing to this table
type IncomingRelation struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
	Cardinality  string
}

func findIncomingRelations(tableName string, s *schema.Schema) []IncomingRelation {
	var incoming []IncomingRelation

	for _, table := range s.Tables {
		for _, rel := range table.Relations {
			if rel.TargetTable == tableName {
				incoming = append(incoming, IncomingRelation{
					SourceTable:  table.Name,
					SourceColumn: rel.SourceColumn,
					TargetTable:  rel.TargetTable,
					TargetColumn: rel.TargetColumn,
					Cardinality:  rel.Cardinality,
				})
			}
		}
	}

	return incoming
}

func (f *MultiFileFormatter) extension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
