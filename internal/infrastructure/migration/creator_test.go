package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add audio jobs", "add_audio_jobs"},
		{"Add-Audio-Jobs", "add_audio_jobs"},
		{"ADD_AUDIO_JOBS", "add_audio_jobs"},
		{"add__audio__jobs", "add_audio_jobs"},
		{"Tax Rates 2", "tax_rates_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("plain migration", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, CreateOptions{Name: "add quote notes", Description: "Free text on quotes"})
		require.NoError(t, err)
		assert.Len(t, mf.Version, 14)

		upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
		downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
		assert.Equal(t, upBase, downBase)
		assert.True(t, strings.HasSuffix(upBase, "_add_quote_notes"))

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "Free text on quotes")
		assert.NotContains(t, string(up), "ROW LEVEL SECURITY")
	})

	t.Run("tenant table scaffold carries the policy", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, CreateOptions{Name: "create projects", TenantTable: "projects"})
		require.NoError(t, err)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "CREATE TABLE projects")
		assert.Contains(t, string(up), "ALTER TABLE projects ENABLE ROW LEVEL SECURITY")
		assert.Contains(t, string(up), "USING ("+TenantPolicy+")")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "DROP TABLE IF EXISTS projects")
	})

	t.Run("creates the directory", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(nested, CreateOptions{Name: "init"})
		require.NoError(t, err)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects unusable names", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), CreateOptions{Name: "!!!"})
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"000001_init_schema.up.sql",
		"000001_init_schema.down.sql",
		"000002_row_level_security.up.sql",
		"000002_row_level_security.down.sql",
		"README.md",
		".up.sql",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000002_row_level_security"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations("/nonexistent/path/to/migrations")
	require.NoError(t, err)
	assert.Empty(t, migrations)
}
