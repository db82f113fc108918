package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"
	"time"
)

// Kind selects the skeleton a new migration starts from
type Kind string

const (
	// KindBlank writes the header only
	KindBlank Kind = "blank"
	// KindColumn adds a column to a ledger table
	KindColumn Kind = "column"
	// KindSearch adds an FTS4 projection over a text column and backfills
	// it. The stores write projections themselves, so the matching store
	// must be taught about the new table as well.
	KindSearch Kind = "search"
)

// Tables lists the ledger tables a generated migration may target
var Tables = []string{"customer", "product", "queue", "product_order"}

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Request describes the migration to generate
type Request struct {
	Name        string
	Description string
	Kind        Kind
	Table       string
	Column      string
	// ColumnType is the SQLite type of an added column, TEXT when empty
	ColumnType string
}

// MigrationFile is a generated up/down pair
type MigrationFile struct {
	Version  string
	BaseName string
	UpPath   string
	DownPath string
}

var skeletons = template.Must(template.New("migration").Parse(`
{{- define "header" -}}
-- Migration: {{.Name}}{{if .Down}} (Rollback){{end}}
-- Created: {{.Created}}
{{- with .Description}}
-- Description: {{.}}
{{- end}}
{{end}}

{{- define "up" -}}
{{template "header" .}}
{{if eq .Kind "column" -}}
ALTER TABLE {{.Table}} ADD COLUMN {{.Column}} {{.ColumnType}};
{{- else if eq .Kind "search" -}}
CREATE VIRTUAL TABLE IF NOT EXISTS {{.Search}} USING fts4 ({{.Column}});
INSERT INTO {{.Search}} (docid, {{.Column}}) SELECT rowid, {{.Column}} FROM {{.Table}};
{{- else -}}
-- SQLite dialect. Amounts are stored as TEXT decimals.
{{- end}}
{{end}}

{{- define "down" -}}
{{template "header" .}}
{{if eq .Kind "column" -}}
ALTER TABLE {{.Table}} DROP COLUMN {{.Column}};
{{- else if eq .Kind "search" -}}
DROP TABLE IF EXISTS {{.Search}};
{{- else -}}
-- Undo the up migration here
{{- end}}
{{end}}
`))

type skeleton struct {
	Request
	Created string
	Search  string
	Down    bool
}

// CreateMigration writes the up/down pair for req into dir, versioned by
// now. It refuses a name already used by a migration in dir.
func CreateMigration(dir string, req Request, now time.Time) (*MigrationFile, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	name := sanitizeName(req.Name)
	existing, err := listMigrations(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	if slices.ContainsFunc(existing, func(base string) bool {
		_, rest, _ := strings.Cut(base, "_")
		return rest == name
	}) {
		return nil, fmt.Errorf("a migration named %q already exists in %s", name, dir)
	}

	version := now.UTC().Format("20060102150405")
	mf := &MigrationFile{Version: version, BaseName: version + "_" + name}
	mf.UpPath = filepath.Join(dir, mf.BaseName+".up.sql")
	mf.DownPath = filepath.Join(dir, mf.BaseName+".down.sql")

	data := skeleton{Request: req, Created: now.Format(time.RFC3339), Search: req.Table + "_" + req.Column + "_fts"}
	if err := writeSkeleton(mf.UpPath, "up", data); err != nil {
		return nil, err
	}
	data.Down = true
	if err := writeSkeleton(mf.DownPath, "down", data); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func (r Request) normalize() (Request, error) {
	if sanitizeName(r.Name) == "" {
		return r, errors.New("migration name is empty")
	}
	if r.Kind == "" {
		r.Kind = KindBlank
	}
	switch r.Kind {
	case KindBlank:
		return r, nil
	case KindColumn, KindSearch:
	default:
		return r, fmt.Errorf("unknown migration kind %q", r.Kind)
	}

	if !slices.Contains(Tables, r.Table) {
		return r, fmt.Errorf("unknown table %q, expected one of %s", r.Table, strings.Join(Tables, ", "))
	}
	if !identifier.MatchString(r.Column) {
		return r, fmt.Errorf("invalid column name %q", r.Column)
	}
	if r.Kind == KindColumn {
		r.ColumnType = strings.ToUpper(strings.TrimSpace(r.ColumnType))
		if r.ColumnType == "" {
			r.ColumnType = "TEXT"
		}
		if !slices.Contains([]string{"TEXT", "INTEGER", "REAL", "BLOB", "NUMERIC"}, r.ColumnType) {
			return r, fmt.Errorf("unsupported column type %q", r.ColumnType)
		}
	}
	return r, nil
}

// writeSkeleton never overwrites an existing file
func writeSkeleton(path, name string, data skeleton) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := skeletons.ExecuteTemplate(f, name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// sanitizeName lowercases name and joins its ASCII alphanumeric words with
// underscores
func sanitizeName(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, w)
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "_")
}

// listMigrations returns the base names of the up migrations in fsys
func listMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok && base != "" {
			names = append(names, base)
		}
	}
	return names, nil
}
