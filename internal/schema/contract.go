package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Table and column names of the common tables.
const (
	LevelsTable  = "levels"
	LevelsID     = "id"
	LevelsLevel  = "_level"
	LevelsHash   = "hash"
	MaxIDTable   = "max_id"
	MaxIDColumn  = "max_id"
	HashMaxLen   = 60
	MaxIDSeedVal = 1
)

// CommonTables describes the levels/max_id contract as introspection structs.
// Types are given in their portable form; Verify compares structure, not
// dialect-specific type names.
func CommonTables() *Schema {
	return &Schema{Tables: []Table{
		{
			Name:       LevelsTable,
			PrimaryKey: []string{LevelsID},
			Columns: []Column{
				{Name: LevelsID, Type: "integer"},
				{Name: LevelsLevel, Type: "integer", IsUnique: true},
				{Name: LevelsHash, Type: fmt.Sprintf("varchar(%d)", HashMaxLen), Nullable: true, IsUnique: true},
			},
			Indexes: []Index{
				{Name: "levels__level_idx", Columns: []string{LevelsLevel}, IsUnique: true},
				{Name: "levels_hash_idx", Columns: []string{LevelsHash}, IsUnique: true},
			},
		},
		{
			Name: MaxIDTable,
			Columns: []Column{
				{Name: MaxIDColumn, Type: "integer", Nullable: true},
			},
		},
	}}
}

var lengthRe = regexp.MustCompile(`\(\s*(\d+)\s*\)`)

// ColumnLength extracts the declared length from a type such as
// "VARCHAR(60)" or "character varying(60)". ok is false when no length is
// declared.
func ColumnLength(colType string) (n int, ok bool) {
	m := lengthRe.FindStringSubmatch(colType)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Report is the outcome of Verify. Problems break the contract; warnings are
// known gaps of the contract itself.
type Report struct {
	Problems []string
	Warnings []string
}

// OK reports whether no problem was found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) problemf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Verify walks CommonTables and checks each expected table, column, primary
// key and unique index against actual. Integer columns accept any integer
// type name; string columns must declare the expected length.
func Verify(actual *Schema) Report {
	var r Report
	if actual == nil {
		r.problemf("no schema extracted")
		return r
	}

	for _, want := range CommonTables().Tables {
		verifyTable(&want, actual.Table(want.Name), &r)
	}

	if t := actual.Table(MaxIDTable); t != nil && len(t.PrimaryKey) == 0 && !t.HasUniqueIndexOn(MaxIDColumn) {
		r.warnf("%s has no constraint keeping it to a single row", MaxIDTable)
	}
	return r
}

func verifyTable(want, got *Table, r *Report) {
	if got == nil {
		r.problemf("table %s is missing", want.Name)
		return
	}

	if len(want.PrimaryKey) > 0 && !slices.Equal(got.PrimaryKey, want.PrimaryKey) {
		r.problemf("%s: primary key is %v, want %v", want.Name, got.PrimaryKey, want.PrimaryKey)
	}

	for _, wc := range want.Columns {
		gc := got.Column(wc.Name)
		if gc == nil {
			r.problemf("%s.%s is missing", want.Name, wc.Name)
			continue
		}
		verifyColumn(want, got, wc, *gc, r)
	}

	if len(got.Relations) > 0 {
		r.warnf("%s declares %d foreign keys, none expected", want.Name, len(got.Relations))
	}
}

func verifyColumn(want, got *Table, wc, gc Column, r *Report) {
	name := want.Name + "." + wc.Name

	if isIntegerType(wc.Type) {
		if !isIntegerType(gc.Type) {
			r.problemf("%s has type %s, want an integer type", name, gc.Type)
		}
	} else if wantLen, ok := ColumnLength(wc.Type); ok {
		if n, ok := ColumnLength(gc.Type); !ok || n != wantLen {
			r.problemf("%s has type %s, want a string of at most %d characters", name, gc.Type, wantLen)
		}
	}

	// SQLite reports INTEGER PRIMARY KEY columns as nullable.
	if !slices.Contains(want.PrimaryKey, wc.Name) {
		switch {
		case wc.Nullable && !gc.Nullable:
			r.problemf("%s must be nullable", name)
		case !wc.Nullable && gc.Nullable:
			r.problemf("%s must be NOT NULL", name)
		}
	}

	if wc.IsUnique && !got.HasUniqueIndexOn(wc.Name) {
		r.problemf("%s has no unique index", name)
	}
}

var integerTypes = map[string]bool{
	"int": true, "integer": true, "int2": true, "int4": true, "int8": true,
	"tinyint": true, "smallint": true, "mediumint": true, "bigint": true,
	"smallserial": true, "serial": true, "bigserial": true,
}

// isIntegerType matches the base type name only, so "int(11) unsigned" and
// "INTEGER" pass while "interval" and "point" do not.
func isIntegerType(t string) bool {
	t = strings.ToLower(t)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	fields := strings.Fields(t)
	return len(fields) > 0 && integerTypes[fields[0]]
}
