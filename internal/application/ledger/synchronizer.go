package ledger

import (
	"slices"

	"github.com/ledger/backend/internal/domain/shared"
)

// Synchronizer patches a list held by a listener with the models of a
// change, matching entries by id. Keep, when set, decides whether an
// updated model still belongs in the list.
type Synchronizer[T shared.Identifiable] struct {
	Keep func(T) bool
}

// Apply returns list patched with models. list itself is left untouched.
func (s Synchronizer[T]) Apply(list []T, kind shared.ChangeKind, models []T) []T {
	out := slices.Clone(list)
	for _, m := range models {
		i := indexByID(out, m.ModelID())
		switch kind {
		case shared.ChangeAdded, shared.ChangeUpserted:
			if !s.keeps(m) {
				if i >= 0 {
					out = slices.Delete(out, i, i+1)
				}
				continue
			}
			if i >= 0 {
				out[i] = m
			} else {
				out = append(out, m)
			}
		case shared.ChangeUpdated:
			switch {
			case !s.keeps(m):
				if i >= 0 {
					out = slices.Delete(out, i, i+1)
				}
			case i >= 0:
				out[i] = m
			default:
				out = append(out, m)
			}
		case shared.ChangeDeleted:
			if i >= 0 {
				out = slices.Delete(out, i, i+1)
			}
		}
	}
	return out
}

func (s Synchronizer[T]) keeps(m T) bool {
	return s.Keep == nil || s.Keep(m)
}

func indexByID[T shared.Identifiable](list []T, id int64) int {
	return slices.IndexFunc(list, func(m T) bool { return m.ModelID() == id })
}
