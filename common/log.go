package common

import (
	"database/sql"

	"github.com/apex/log"
)

// LogResult logs a failed exec, or a row count other than one when expectOne is set.
func LogResult(op string, r sql.Result, err error, expectOne bool) {
	if err != nil {
		log.Errorf("%s: query failed: %v", op, err)
		return
	}
	rows, err := r.RowsAffected()
	if err != nil {
		log.Errorf("%s: failed to get status of db op: %v", op, err)
		return
	}
	if expectOne && rows != 1 {
		log.Warnf("%s: expected to affect 1 row, affected %d", op, rows)
	}
}
