package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds a row-level FOR UPDATE lock on the named table when the
// backing store supports it. SQLite, used by the test suite, serializes
// writers on its own and rejects the clause.
func lockForUpdate(query *gorm.DB, table string) *gorm.DB {
	if query.Dialector.Name() != "postgres" {
		return query
	}

	return query.Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: table},
	})
}
