package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteLike mirrors what the SQLite extractor reports for the common tables.
func sqliteLike() *Schema {
	return &Schema{Tables: []Table{
		{
			Name:       "levels",
			PrimaryKey: []string{"id"},
			Columns: []Column{
				{Name: "id", Type: "INTEGER", Nullable: true},
				{Name: "_level", Type: "INTEGER", IsUnique: true},
				{Name: "hash", Type: "VARCHAR(60)", Nullable: true, IsUnique: true},
			},
			Indexes: []Index{
				{Name: "levels__level_idx", Columns: []string{"_level"}, IsUnique: true},
				{Name: "levels_hash_idx", Columns: []string{"hash"}, IsUnique: true},
			},
		},
		{
			Name:    "max_id",
			Columns: []Column{{Name: "max_id", Type: "INTEGER", Nullable: true}},
		},
	}}
}

// mysqlLike mirrors what the MySQL extractor reports for the common tables.
func mysqlLike() *Schema {
	s := sqliteLike()
	levels := s.Table("levels")
	levels.Column("id").Type = "int"
	levels.Column("id").Nullable = false
	levels.Column("_level").Type = "int"
	levels.Column("hash").Type = "varchar(60)"
	s.Table("max_id").Column("max_id").Type = "int"
	return s
}

func TestVerifyAcceptsContract(t *testing.T) {
	for name, s := range map[string]*Schema{
		"contract": CommonTables(),
		"sqlite":   sqliteLike(),
		"mysql":    mysqlLike(),
	} {
		t.Run(name, func(t *testing.T) {
			r := Verify(s)
			assert.True(t, r.OK(), "problems: %v", r.Problems)
			require.Len(t, r.Warnings, 1)
			assert.Contains(t, r.Warnings[0], "max_id has no constraint keeping it to a single row")
		})
	}
}

func TestVerifyProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Schema)
		want   string
	}{
		{
			name:   "missing levels table",
			mutate: func(s *Schema) { s.Tables = s.Tables[1:] },
			want:   "table levels is missing",
		},
		{
			name:   "missing max_id table",
			mutate: func(s *Schema) { s.Tables = s.Tables[:1] },
			want:   "table max_id is missing",
		},
		{
			name: "level nullable",
			mutate: func(s *Schema) {
				s.Table("levels").Column("_level").Nullable = true
			},
			want: "levels._level must be NOT NULL",
		},
		{
			name: "no unique index on hash",
			mutate: func(s *Schema) {
				tbl := s.Table("levels")
				tbl.Indexes = tbl.Indexes[:1]
				tbl.Column("hash").IsUnique = false
			},
			want: "levels.hash has no unique index",
		},
		{
			name: "hash too wide",
			mutate: func(s *Schema) {
				s.Table("levels").Column("hash").Type = "VARCHAR(128)"
			},
			want: "want a string of at most 60 characters",
		},
		{
			name: "hash without length",
			mutate: func(s *Schema) {
				s.Table("levels").Column("hash").Type = "TEXT"
			},
			want: "levels.hash has type TEXT",
		},
		{
			name: "level stored as interval",
			mutate: func(s *Schema) {
				s.Table("levels").Column("_level").Type = "interval"
			},
			want: "levels._level has type interval, want an integer type",
		},
		{
			name: "id stored as point",
			mutate: func(s *Schema) {
				s.Table("levels").Column("id").Type = "point"
			},
			want: "levels.id has type point, want an integer type",
		},
		{
			name: "max_id stored as text",
			mutate: func(s *Schema) {
				s.Table("max_id").Column("max_id").Type = "TEXT"
			},
			want: "max_id.max_id has type TEXT, want an integer type",
		},
		{
			name: "hash not nullable",
			mutate: func(s *Schema) {
				s.Table("levels").Column("hash").Nullable = false
			},
			want: "levels.hash must be nullable",
		},
		{
			name: "wrong primary key",
			mutate: func(s *Schema) {
				s.Table("levels").PrimaryKey = []string{"_level"}
			},
			want: "primary key is [_level]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sqliteLike()
			tt.mutate(s)
			r := Verify(s)
			assert.False(t, r.OK())
			found := false
			for _, p := range r.Problems {
				if strings.Contains(p, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "want problem containing %q, got %v", tt.want, r.Problems)
		})
	}
}

func TestVerifyNilSchema(t *testing.T) {
	r := Verify(nil)
	assert.False(t, r.OK())
}

func TestVerifySingletonGuardSilencesWarning(t *testing.T) {
	s := sqliteLike()
	s.Table("max_id").PrimaryKey = []string{"max_id"}
	r := Verify(s)
	assert.True(t, r.OK())
	assert.Empty(t, r.Warnings)
}

func TestIsIntegerType(t *testing.T) {
	for typ, want := range map[string]bool{
		"integer":          true,
		"INTEGER":          true,
		"int":              true,
		"int(11)":          true,
		"int unsigned":     true,
		"int(10) unsigned": true,
		"bigint":           true,
		"smallint":         true,
		"int4":             true,
		"int8":             true,
		"serial":           true,
		"bigserial":        true,
		"interval":         false,
		"point":            false,
		"varchar(60)":      false,
		"text":             false,
		"":                 false,
	} {
		assert.Equal(t, want, isIntegerType(typ), typ)
	}
}

func TestColumnLength(t *testing.T) {
	tests := []struct {
		input string
		n     int
		ok    bool
	}{
		{"VARCHAR(60)", 60, true},
		{"character varying(60)", 60, true},
		{"varchar( 127 )", 127, true},
		{"NUMERIC(64)", 64, true},
		{"TEXT", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		n, ok := ColumnLength(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		assert.Equal(t, tc.n, n, tc.input)
	}
}
