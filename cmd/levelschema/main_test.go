package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/levelschema/internal/shared"
)

func TestParseTableList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"single", "levels", []string{"levels"}},
		{"spaces", " levels , max_id ", []string{"levels", "max_id"}},
		{"trailing comma", "levels,", []string{"levels"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTableList(tt.input))
		})
	}
}

// isolate runs the command from an empty directory with no database
// configured in the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	for _, key := range []string{"DATABASE_URL", "LEVELSCHEMA_DATABASE_URL", "LEVELSCHEMA_LOGGING_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateLifecycle(t *testing.T) {
	dir := isolate(t)
	url := "sqlite://" + filepath.Join(dir, "levels.db")

	out, err := execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, "Applied migration 00001\n", out)

	out, err = execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, "Database is up to date\n", out)

	out, err = execute(t, "migrate", "version", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = execute(t, "migrate", "status", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "00001  applied")

	_, err = execute(t, "migrate", "reset", "--db-url", url)
	assert.Error(t, err)

	out, err = execute(t, "migrate", "reset", "--yes", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, "Rolled back 1 migration(s)\n", out)

	out, err = execute(t, "migrate", "down", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, "Nothing to roll back\n", out)

	// The version table survives a reset, so bootstrap leaves the database
	// to an explicit 'migrate up'.
	_, err = execute(t, "migrate", "bootstrap", "--db-url", url)
	assert.ErrorIs(t, err, shared.ErrSchemaOutdated)
	out, err = execute(t, "migrate", "status", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "00001  pending")
}

func TestBootstrapFreshDatabase(t *testing.T) {
	dir := isolate(t)
	url := "sqlite://" + filepath.Join(dir, "fresh.db")

	_, err := execute(t, "migrate", "bootstrap", "--db-url", url)
	require.NoError(t, err)

	out, err := execute(t, "migrate", "version", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestVerifyCommand(t *testing.T) {
	dir := isolate(t)
	url := "sqlite://" + filepath.Join(dir, "levels.db")

	_, err := execute(t, "verify", "--db-url", url)
	assert.ErrorIs(t, err, errVerifyFailed)

	_, err = execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)

	out, err := execute(t, "verify", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: levels and max_id match the expected layout")
	assert.Contains(t, out, "max_id rows: 1")
	assert.Contains(t, out, "max_id has no constraint keeping it to a single row")
}

func TestDescribeCommand(t *testing.T) {
	dir := isolate(t)
	url := "sqlite://" + filepath.Join(dir, "levels.db")
	_, err := execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)

	out, err := execute(t, "describe", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "TABLE levels (PK: id)")
	assert.Contains(t, out, "TABLE max_id")
	assert.NotContains(t, out, "goose_db_version")

	out, err = execute(t, "describe", "-f", "markdown", "-t", "levels", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "## levels")
	assert.NotContains(t, out, "## max_id")

	outFile := filepath.Join(dir, "schema.md")
	_, err = execute(t, "describe", "-f", "markdown", "-o", outFile, "--db-url", url)
	require.NoError(t, err)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Database Schema")

	outDir := filepath.Join(dir, "docs")
	_, err = execute(t, "describe", "-d", outDir, "-t", "*", "--db-url", url)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "_overview.txt"))
	assert.FileExists(t, filepath.Join(outDir, "levels.txt"))

	_, err = execute(t, "describe", "-o", outFile, "-d", outDir, "--db-url", url)
	assert.Error(t, err)

	_, err = execute(t, "describe", "-f", "html", "--db-url", url)
	assert.Error(t, err)
}

func TestGenerateSQLCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "generate-sql", "--dialect", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "AUTOINCREMENT")
	assert.Contains(t, out, "INSERT INTO max_id (max_id) VALUES (1);")

	out, err = execute(t, "generate-sql")
	require.NoError(t, err)
	assert.Contains(t, out, "SERIAL")

	_, err = execute(t, "generate-sql", "--dialect", "oracle")
	assert.ErrorIs(t, err, shared.ErrUnsupportedDatabase)
}

func TestMissingDatabaseURL(t *testing.T) {
	isolate(t)

	_, err := execute(t, "migrate", "up")
	assert.ErrorIs(t, err, shared.ErrMissingDatabaseURL)

	_, err = execute(t, "verify")
	assert.ErrorIs(t, err, shared.ErrMissingDatabaseURL)
}

func TestDatabaseURLFromConfigFile(t *testing.T) {
	dir := isolate(t)
	url := "sqlite://" + filepath.Join(dir, "from-config.db")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "levelschema.toml"), []byte("[database]\nurl = \""+url+"\"\n"), 0o644))

	out, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "Applied migration 00001\n", out)
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Equal(t, "Wrote "+path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[database]")
	assert.Contains(t, string(data), "[logging]")

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err)

	_, err = execute(t, "config", "init", path, "--force")
	assert.NoError(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	isolate(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate-sql", "--log-level", "loud"})
	assert.ErrorIs(t, cmd.Execute(), shared.ErrInvalidLogLevel)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (testing.T.Chdir requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
