package migration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, time.March, 1, 9, 30, 0, 0, time.UTC)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add queue note", "add_queue_note"},
		{"Add-Queue-Note", "add_queue_note"},
		{"product__fts__rebuild", "product_fts_rebuild"},
		{"Index 2", "index_2"},
		{"  padded  ", "padded"},
		{"odd!@#chars", "oddchars"},
		{"café note", "caf_note"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func readPair(t *testing.T, mf *MigrationFile) (string, string) {
	t.Helper()
	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	return string(up), string(down)
}

func TestCreateMigration(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		up   string
		down string
	}{
		{
			name: "blank",
			req:  Request{Name: "Tidy indexes", Description: "Drop unused indexes"},
			up:   "-- Migration: Tidy indexes\n-- Created: 2025-03-01T09:30:00Z\n-- Description: Drop unused indexes\n\n-- SQLite dialect. Amounts are stored as TEXT decimals.\n",
			down: "-- Migration: Tidy indexes (Rollback)\n-- Created: 2025-03-01T09:30:00Z\n-- Description: Drop unused indexes\n\n-- Undo the up migration here\n",
		},
		{
			name: "column",
			req:  Request{Name: "queue note", Kind: KindColumn, Table: "queue", Column: "note"},
			up:   "-- Migration: queue note\n-- Created: 2025-03-01T09:30:00Z\n\nALTER TABLE queue ADD COLUMN note TEXT;\n",
			down: "-- Migration: queue note (Rollback)\n-- Created: 2025-03-01T09:30:00Z\n\nALTER TABLE queue DROP COLUMN note;\n",
		},
		{
			name: "integer column",
			req:  Request{Name: "customer visits", Kind: KindColumn, Table: "customer", Column: "visits", ColumnType: "integer"},
			up:   "-- Migration: customer visits\n-- Created: 2025-03-01T09:30:00Z\n\nALTER TABLE customer ADD COLUMN visits INTEGER;\n",
			down: "-- Migration: customer visits (Rollback)\n-- Created: 2025-03-01T09:30:00Z\n\nALTER TABLE customer DROP COLUMN visits;\n",
		},
		{
			name: "search",
			req:  Request{Name: "search notes", Kind: KindSearch, Table: "queue", Column: "note"},
			up: "-- Migration: search notes\n-- Created: 2025-03-01T09:30:00Z\n\n" +
				"CREATE VIRTUAL TABLE IF NOT EXISTS queue_note_fts USING fts4 (note);\n" +
				"INSERT INTO queue_note_fts (docid, note) SELECT rowid, note FROM queue;\n",
			down: "-- Migration: search notes (Rollback)\n-- Created: 2025-03-01T09:30:00Z\n\nDROP TABLE IF EXISTS queue_note_fts;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "nested", "sql")
			mf, err := CreateMigration(dir, tt.req, created)
			require.NoError(t, err)

			assert.Equal(t, "20250301093000", mf.Version)
			assert.Equal(t, filepath.Join(dir, mf.BaseName+".up.sql"), mf.UpPath)
			assert.Equal(t, filepath.Join(dir, mf.BaseName+".down.sql"), mf.DownPath)

			up, down := readPair(t, mf)
			assert.Equal(t, tt.up, up)
			assert.Equal(t, tt.down, down)

			names, err := listMigrations(os.DirFS(dir))
			require.NoError(t, err)
			assert.Equal(t, []string{mf.BaseName}, names)
		})
	}
}

func TestCreateMigration_Rejects(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty name", Request{Name: "!!"}},
		{"unknown kind", Request{Name: "x", Kind: "trigger"}},
		{"unknown table", Request{Name: "x", Kind: KindColumn, Table: "invoice", Column: "note"}},
		{"bad column", Request{Name: "x", Kind: KindSearch, Table: "product", Column: "name; DROP TABLE product"}},
		{"bad type", Request{Name: "x", Kind: KindColumn, Table: "product", Column: "sku", ColumnType: "VARCHAR(20)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := CreateMigration(dir, tt.req, created)
			assert.Error(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestCreateMigration_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateMigration(dir, Request{Name: "add note"}, created)
	require.NoError(t, err)

	_, err = CreateMigration(dir, Request{Name: "Add-Note"}, created.Add(time.Hour))
	assert.ErrorContains(t, err, "already exists")

	// a longer name ending the same way is distinct
	_, err = CreateMigration(dir, Request{Name: "queue add note"}, created.Add(time.Hour))
	assert.NoError(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{
		"20250101000000_init.up.sql",
		"20250101000000_init.down.sql",
		"20250201000000_index.up.sql",
		"README.md",
		".up.sql",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "x.up.sql"), 0o755))

	names, err := listMigrations(os.DirFS(dir))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"20250101000000_init", "20250201000000_index"}, names)
}

func TestEmbedded(t *testing.T) {
	names, err := Embedded()
	require.NoError(t, err)
	assert.Contains(t, names, "20250101000000_init")
}
