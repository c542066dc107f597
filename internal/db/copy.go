package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom streams rows into table with the COPY protocol. The table may be
// schema-qualified ("public.sourcing_records").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// CopyBatch is one table's worth of rows for CopyAll.
type CopyBatch struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// CopyAll copies each batch in order, stopping at the first failure. Parents
// must come before children when the tables are linked by foreign keys.
func CopyAll(ctx context.Context, pool Pool, batches ...CopyBatch) (int64, error) {
	var total int64
	for _, b := range batches {
		n, err := CopyFrom(ctx, pool, b.Table, b.Columns, b.Rows)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}
