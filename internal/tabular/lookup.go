package tabular

import (
	"context"

	"powerbi-tom-skill/internal/common/errors"
)

// FindDatabase returns the dataset named name. Enumeration failures are
// reported as query failures; a miss is DATASET_NOT_FOUND.
func FindDatabase(ctx context.Context, server Server, name, workspace string) (Database, error) {
	databases, err := server.Databases(ctx)
	if err != nil {
		return nil, asQueryError("databases", err)
	}
	for _, db := range databases {
		if db.Name() == name {
			return db, nil
		}
	}
	return nil, errors.NewDatasetNotFoundError(name, workspace)
}

// FindTable returns the table named name within db.
func FindTable(ctx context.Context, db Database, name string) (Table, error) {
	tables, err := db.Tables(ctx)
	if err != nil {
		return nil, asQueryError("tables", err)
	}
	for _, t := range tables {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, errors.NewTableNotFoundError(name, db.Name())
}

// FindColumn returns the column named name within table.
func FindColumn(ctx context.Context, table Table, name string) (Column, error) {
	columns, err := table.Columns(ctx)
	if err != nil {
		return nil, asQueryError("columns", err)
	}
	for _, c := range columns {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, errors.NewColumnNotFoundError(name, table.Name())
}

// asQueryError keeps StandardErrors raised by a connector and wraps anything else.
func asQueryError(what string, err error) error {
	if _, ok := err.(*errors.StandardError); ok {
		return err
	}
	return errors.NewQueryExecutionFailedError(what, err)
}
