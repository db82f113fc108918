package persistence

import (
	"strings"

	"gorm.io/gorm"
)

// ftsMatch builds an FTS MATCH expression requiring every space-separated
// token of query as a word prefix. ok is false when query has no tokens.
func ftsMatch(query string) (match string, ok bool) {
	tokens := strings.Split(query, " ")
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(tok, `"`, `""`)+`*"`)
	}
	if len(terms) == 0 {
		return "", false
	}
	return strings.Join(terms, " "), true
}

// ftsTable keeps the full-text projection of a named table in sync. The
// projection row shares its docid with the base row's rowid.
type ftsTable string

const (
	customerFts ftsTable = "customer_fts"
	productFts  ftsTable = "product_fts"
)

func (t ftsTable) insert(tx *gorm.DB, rowID int64, name string) error {
	return tx.Exec("INSERT INTO "+string(t)+" (docid, name) VALUES (?, ?)", rowID, name).Error
}

func (t ftsTable) delete(tx *gorm.DB, rowID int64) error {
	return tx.Exec("DELETE FROM "+string(t)+" WHERE docid = ?", rowID).Error
}
