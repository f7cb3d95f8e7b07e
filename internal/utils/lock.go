package utils

import (
	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Query clauses (row locking)
)

// ForUpdate adds an exclusive row lock (SELECT ... FOR UPDATE) to the query.
// SQLite, used by the test suite, has no FOR UPDATE syntax; its single-writer
// model serializes writes anyway, so the clause is skipped there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
