package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "sourcing_records", []string{"id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sourcing_records"}, []string{"id", "year"}).WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "sourcing_records", []string{"id", "year"},
		[][]any{{"a", 2020}, {"b", 2021}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"public", "indicator_records"}, []string{"id"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "public.indicator_records", []string{"id"}, [][]any{{"x"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sourcing_records"}, []string{"id"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "sourcing_records", []string{"id"}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO sourcing_records")
}

func TestCopyAll_StopsAtFirstFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sourcing_locations"}, []string{"id"}).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"sourcing_records"}, []string{"id"}).WillReturnError(fmt.Errorf("fk violation"))

	n, err := CopyAll(context.Background(), mock,
		CopyBatch{Table: "sourcing_locations", Columns: []string{"id"}, Rows: [][]any{{"l1"}, {"l2"}}},
		CopyBatch{Table: "sourcing_records", Columns: []string{"id"}, Rows: [][]any{{"r1"}}},
		CopyBatch{Table: "indicator_records", Columns: []string{"id"}, Rows: [][]any{{"i1"}}},
	)
	require.Error(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, err.Error(), "COPY INTO sourcing_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyAll_SkipsEmptyBatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"sourcing_records"}, []string{"id"}).WillReturnResult(1)

	n, err := CopyAll(context.Background(), mock,
		CopyBatch{Table: "scenario_intervention_replaced", Columns: []string{"id"}},
		CopyBatch{Table: "sourcing_records", Columns: []string{"id"}, Rows: [][]any{{"r1"}}},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []int
		size int
		want [][]int
	}{
		{"empty", nil, 3, nil},
		{"single chunk", []int{1, 2}, 5, [][]int{{1, 2}}},
		{"exact", []int{1, 2, 3, 4}, 2, [][]int{{1, 2}, {3, 4}}},
		{"remainder", []int{1, 2, 3, 4, 5}, 2, [][]int{{1, 2}, {3, 4}, {5}}},
		{"non-positive size", []int{1, 2, 3}, 0, [][]int{{1, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Chunk(tt.in, tt.size))
		})
	}
}
