package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics flattens err into log fields. Postgres server diagnostics are
// lifted out of pgx and lib/pq errors anywhere in the chain.
func Diagnostics(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.Code()
	}

	var chain []string
	for link := err; link != nil; link = stderrors.Unwrap(link) {
		chain = append(chain, fmt.Sprintf("%T: %v", link, link))
	}
	fields["error_chain"] = chain

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stderrors.As(err, &pgxErr):
		addPG(fields, pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message)
	case stderrors.As(err, &pqErr):
		addPG(fields, string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message)
	}
	return fields
}

func addPG(fields map[string]any, code, constraint, table, column, detail, message string) {
	for key, value := range map[string]string{
		"pg_code":       code,
		"pg_constraint": constraint,
		"pg_table":      table,
		"pg_column":     column,
		"pg_detail":     detail,
		"pg_message":    message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
}
