package errors

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string

	// Store is "postgres" or "sqlite" when a driver error sits in the chain.
	Store      string
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
	DriverMsg  string

	// Timeout marks chains ending in a deadline, usually an n8n or eBay call
	// that outlived its trigger timeout.
	Timeout bool
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Timeout = errors.Is(err, context.DeadlineExceeded)

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	var liteErr sqlite3.Error
	switch {
	case errors.As(err, &pgxErr):
		d.Store = "postgres"
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.DriverMsg = pgxErr.Message
	case errors.As(err, &pqErr):
		d.Store = "postgres"
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.DriverMsg = pqErr.Message
	case errors.As(err, &liteErr):
		d.Store = "sqlite"
		d.SQLState = strconv.Itoa(int(liteErr.ExtendedCode))
		d.DriverMsg = liteErr.Error()
	}
	return d
}

// Fields returns the populated parts of d keyed for the request log.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 1 {
		fields["error_chain"] = d.Chain
	}
	if d.Timeout {
		fields["timeout"] = true
	}
	for key, value := range map[string]string{
		"db_store":      d.Store,
		"db_state":      d.SQLState,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
		"db_message":    d.DriverMsg,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
