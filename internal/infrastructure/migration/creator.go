package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- {{.Name}}
-- {{.Description}}
{{if .TenantTable}}
CREATE TABLE {{.TenantTable}} (
    id          UUID PRIMARY KEY,
    tenant_id   UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    created_by  UUID,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_{{.TenantTable}}_tenant_id ON {{.TenantTable}}(tenant_id);

ALTER TABLE {{.TenantTable}} ENABLE ROW LEVEL SECURITY;
ALTER TABLE {{.TenantTable}} FORCE ROW LEVEL SECURITY;
CREATE POLICY tenant_isolation ON {{.TenantTable}}
    USING ({{.Policy}})
    WITH CHECK ({{.Policy}});
{{end}}
`

const migrationDownTemplate = `-- {{.Name}} (rollback)
{{if .TenantTable}}
DROP TABLE IF EXISTS {{.TenantTable}};
{{end}}
`

// TenantPolicy is the row-level security predicate every tenant-owned table uses
const TenantPolicy = "tenant_id = NULLIF(current_setting('app.current_tenant', true), '')::uuid OR current_setting('app.bypass_rls', true) = 'on'"

// MigrationFile represents a migration file pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	TenantTable string
	Policy      string
	UpPath      string
	DownPath    string
}

// CreateOptions describe a new migration. A TenantTable scaffolds a tenant-owned
// table with its row-level security policy.
type CreateOptions struct {
	Name        string
	Description string
	TenantTable string
}

// CreateMigration creates a new migration file pair named after the current time
func CreateMigration(migrationsDir string, opts CreateOptions) (*MigrationFile, error) {
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}
	name := sanitizeName(opts.Name)
	if name == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", opts.Name)
	}

	version := time.Now().UTC().Format("20060102150405")
	baseName := version + "_" + name

	mf := &MigrationFile{
		Version:     version,
		Name:        opts.Name,
		Description: opts.Description,
		TenantTable: sanitizeName(opts.TenantTable),
		Policy:      TenantPolicy,
		UpPath:      filepath.Join(migrationsDir, baseName+".up.sql"),
		DownPath:    filepath.Join(migrationsDir, baseName+".down.sql"),
	}

	if err := createMigrationFile(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := createMigrationFile(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

// createMigrationFile creates a single migration file from template
func createMigrationFile(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// sanitizeName converts a migration name to a safe file name format
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			result = append(result, c)
		case c >= 'A' && c <= 'Z':
			result = append(result, c+'a'-'A')
		case c >= '0' && c <= '9':
			result = append(result, c)
		case c == ' ' || c == '-' || c == '_':
			if len(result) > 0 && result[len(result)-1] != '_' {
				result = append(result, '_')
			}
		}
	}
	if len(result) > 0 && result[len(result)-1] == '_' {
		result = result[:len(result)-1]
	}
	return string(result)
}

// ListMigrations returns a list of all migration files in a directory
func ListMigrations(migrationsDir string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	migrations := make([]string, 0)
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if baseName, ok := strings.CutSuffix(name, ".up.sql"); ok && baseName != "" {
			if !seen[baseName] {
				seen[baseName] = true
				migrations = append(migrations, baseName)
			}
		}
	}

	return migrations, nil
}
