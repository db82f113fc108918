package migration

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestMigrator_UpDown(t *testing.T) {
	db := openMemory(t)

	m, err := New(db, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	// second run is a no-op
	require.NoError(t, m.Up())

	tables := tableNames(t, db)
	for _, want := range []string{"customer", "product", "queue", "product_order", "customer_fts", "product_fts"} {
		assert.Contains(t, tables, want)
	}

	version, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(20250101000000), version)
	assert.False(t, dirty)

	require.NoError(t, m.Down())
	assert.NotContains(t, tableNames(t, db), "queue")

	// handle is still usable after Close
	require.NoError(t, m.Close())
	require.NoError(t, db.Ping())
}

func TestMigrator_ForeignKeys(t *testing.T) {
	db := openMemory(t)
	m, err := New(db, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	_, err = db.Exec(`INSERT INTO customer (id, name, balance) VALUES (1, 'Amy', 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO queue (id, customer_id, status, payment_method, date) VALUES (1, 1, 'COMPLETED', 'CASH', 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO product_order (queue_id, quantity) VALUES (1, '1')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO product_order (queue_id, quantity) VALUES (99, '1')`)
	assert.Error(t, err)

	_, err = db.Exec(`DELETE FROM customer WHERE id = 1`)
	require.NoError(t, err)
	var customerID sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT customer_id FROM queue WHERE id = 1`).Scan(&customerID))
	assert.False(t, customerID.Valid)

	_, err = db.Exec(`DELETE FROM queue WHERE id = 1`)
	require.NoError(t, err)
	var orders int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM product_order`).Scan(&orders))
	assert.Zero(t, orders)
}
