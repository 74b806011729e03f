// Package repository is the MySQL implementation of the remote store. Each
// table has its own repo; Backend bundles them behind remote.Backend.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write hits a unique key owned by another
// row, e.g. saving a user whose email already belongs to a different id.
var ErrConflict = errors.New("conflict")

const errDupEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}
