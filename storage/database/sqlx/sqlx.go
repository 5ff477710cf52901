// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/peereval/core"
)

// ext returns the transaction in exec if any, db otherwise.
func ext(db *sqlx.DB, exec []core.DBExecutor) sqlx.ExtContext {
	if len(exec) > 0 {
		if tx, ok := exec[0].(sqlx.ExtContext); ok {
			return tx
		}
	}
	return db
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
