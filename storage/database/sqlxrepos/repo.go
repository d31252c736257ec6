package sqlxrepos

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
)

// repo holds the default executor. Services pass a transaction to compose several calls atomically.
type repo struct {
	exec core.DBExecutor
}

func (r repo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return r.exec
}

// trapNoRowsErr maps "no rows" errors to core.ErrNotFound.
func trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return errors.Wrap(err, msg)
}
