package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsageTest(t *testing.T) (*PgUsageRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgUsageRepository(mockPool, logger), mockPool
}

func TestPgUsageRepository_CountActiveStudents(t *testing.T) {
	repo, mockPool := setupUsageTest(t)
	defer mockPool.Close()

	t.Run("Found", func(t *testing.T) {
		mockPool.ExpectQuery(regexp.QuoteMeta(countActiveStudentsSQL)).
			WithArgs("school-1").
			WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(int64(42)))

		n, err := repo.CountActiveStudents(context.Background(), "school-1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mockPool.ExpectQuery(regexp.QuoteMeta(countActiveStudentsSQL)).
			WithArgs("school-1").
			WillReturnError(dbErr)

		n, err := repo.CountActiveStudents(context.Background(), "school-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.Zero(t, n)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgUsageRepository_CountActiveCycles(t *testing.T) {
	repo, mockPool := setupUsageTest(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(countActiveCyclesSQL)).
		WithArgs("school-1").
		WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.CountActiveCycles(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgUsageRepository_StorageBytes(t *testing.T) {
	repo, mockPool := setupUsageTest(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(regexp.QuoteMeta(sumStoredBytesSQL)).
		WithArgs("school-1").
		WillReturnRows(mockPool.NewRows([]string{"coalesce"}).AddRow(int64(5368709120)))

	n, err := repo.StorageBytes(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5368709120), n)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
