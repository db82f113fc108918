package shared

import "context"

// Store is the persistence capability shared by every ledger entity.
// Row ids are the physical keys of the backing table and are distinct from
// the logical id carried by the model. Selects return nil (or 0) for absent
// rows instead of an error.
type Store[T any] interface {
	SelectAll(ctx context.Context) ([]T, error)
	SelectByID(ctx context.Context, id int64) (*T, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]T, error)
	SelectByRowID(ctx context.Context, rowID int64) (*T, error)
	SelectIDByRowID(ctx context.Context, rowID int64) (int64, error)
	SelectRowIDByID(ctx context.Context, id int64) (int64, error)
	IsExistsByID(ctx context.Context, id int64) (bool, error)

	// Insert writes a new row and returns its row id.
	Insert(ctx context.Context, model T) (int64, error)
	// Update writes an existing row and returns the affected row count.
	Update(ctx context.Context, model T) (int64, error)
	// Delete removes a row and returns the affected row count.
	Delete(ctx context.Context, model T) (int64, error)
	// Upsert inserts or replaces a row and returns its row id.
	Upsert(ctx context.Context, model T) (int64, error)
}

// Searcher is implemented by stores backed by a full-text projection.
type Searcher[T any] interface {
	// Search returns rows whose name has a word starting with every
	// space-separated token of query, ordered by name.
	Search(ctx context.Context, query string) ([]T, error)
}

// Identifiable exposes the logical id of a model. Zero means unsaved.
type Identifiable interface {
	ModelID() int64
}

// Transactor runs fn inside one storage transaction. Stores called with the
// context handed to fn take part in that transaction; nested calls join it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
