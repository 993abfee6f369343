package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tordrt/levelschema/internal/schema"
)

func TestMarkUniqueColumns(t *testing.T) {
	table := &schema.Table{
		Name: "levels",
		Columns: []schema.Column{
			{Name: "id"},
			{Name: "_level"},
			{Name: "hash"},
		},
		Indexes: []schema.Index{
			{Name: "levels__level_idx", IsUnique: true, Columns: []string{"_level"}},
			{Name: "levels_pair_idx", IsUnique: true, Columns: []string{"id", "hash"}},
			{Name: "levels_hash_plain", Columns: []string{"hash"}},
			{Name: "stale_idx", IsUnique: true, Columns: []string{"gone"}},
		},
	}

	markUniqueColumns(table)

	assert.False(t, table.Column("id").IsUnique)
	assert.True(t, table.Column("_level").IsUnique)
	assert.False(t, table.Column("hash").IsUnique, "composite and non-unique indexes do not count")
}

func TestConnExtractorDefaultSchema(t *testing.T) {
	pg := &Conn{Dialect: Postgres, defaultSchema: "indexer"}
	e, ok := pg.Extractor("").(*Extractor)
	assert.True(t, ok)
	assert.Equal(t, "indexer", e.schema)

	e, ok = pg.Extractor("audit").(*Extractor)
	assert.True(t, ok)
	assert.Equal(t, "audit", e.schema)

	my := &Conn{Dialect: MySQL, defaultSchema: "tezos"}
	me, ok := my.Extractor("").(*MySQLExtractor)
	assert.True(t, ok)
	assert.Equal(t, "tezos", me.schemaName)

	_, ok = (&Conn{Dialect: SQLite}).Extractor("ignored").(*SQLiteExtractor)
	assert.True(t, ok)
}
