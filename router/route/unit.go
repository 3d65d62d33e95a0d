package route

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLUnit is one routed fragment of a statement together with the physical data
// source it was routed to.
type SQLUnit struct {
	DataSourceName string
	SQL            string
	Params         []any
}

func NewSQLUnit(dataSourceName string, query string, params ...any) *SQLUnit {
	return &SQLUnit{
		DataSourceName: dataSourceName,
		SQL:            query,
		Params:         params,
	}
}

func (u *SQLUnit) String() string {
	return fmt.Sprintf("%s: %s", u.DataSourceName, u.SQL)
}

// Statement is an open execution handle on a physical connection.
// *sql.Conn and *sqlx.Conn satisfy it.
//
//go:generate mockgen -source=./unit.go -destination=../mock/route/mock_statement.go -package=mock
type Statement interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// ExecutionUnit pairs a routed fragment with the handle it runs on. It does not
// own the handle: whoever opened the handle closes it.
type ExecutionUnit struct {
	sqlUnit *SQLUnit
	stmt    Statement
}

func NewExecutionUnit(sqlUnit *SQLUnit, stmt Statement) *ExecutionUnit {
	return &ExecutionUnit{
		sqlUnit: sqlUnit,
		stmt:    stmt,
	}
}

func (eu *ExecutionUnit) SQLUnit() *SQLUnit {
	return eu.sqlUnit
}

func (eu *ExecutionUnit) Statement() Statement {
	return eu.stmt
}
