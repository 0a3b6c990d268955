package mysql

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// Store is the MySQL-backed NotificationStore.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, log: logger}
}

// mysqlErrForeignKey is ER_NO_REFERENCED_ROW_2: the inserted row references
// a parent row that does not exist.
const mysqlErrForeignKey = 1452

func isForeignKeyViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrForeignKey
}
