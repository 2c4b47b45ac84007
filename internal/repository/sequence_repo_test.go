package repository_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/internal/testutil"
	"invoicing/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSequenceNextStartsAtOnePerKind(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewSequenceRepository(db)
	txm := repository.NewTransactionManager(db)
	ctx := context.Background()

	next := func(kind string) int64 {
		var v int64
		require.NoError(t, txm.RunInTx(ctx, func(txCtx context.Context) error {
			var err error
			v, err = repo.Next(txCtx, kind)
			return err
		}))
		return v
	}

	assert.Equal(t, int64(1), next(model.SequenceKindEstimate))
	assert.Equal(t, int64(2), next(model.SequenceKindEstimate))
	assert.Equal(t, int64(1), next(model.SequenceKindInvoice))

	current, err := repo.Current(ctx, model.SequenceKindEstimate)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
}

func TestSequenceNextRequiresTransaction(t *testing.T) {
	repo := repository.NewSequenceRepository(testutil.NewDB(t))
	_, err := repo.Next(context.Background(), model.SequenceKindInvoice)
	assert.Error(t, err)
}

func TestSequenceRollbackReleasesValue(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewSequenceRepository(db)
	txm := repository.NewTransactionManager(db)
	ctx := context.Background()

	err := txm.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.Next(txCtx, model.SequenceKindInvoice); err != nil {
			return err
		}
		return apperror.InvalidState("abort")
	})
	require.ErrorIs(t, err, apperror.ErrInvalidState)

	current, err := repo.Current(ctx, model.SequenceKindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)
}

func TestSequenceExhausted(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&model.DocumentSequence{Kind: model.SequenceKindInvoice, LastValue: math.MaxInt64}).Error)

	repo := repository.NewSequenceRepository(db)
	txm := repository.NewTransactionManager(db)
	err := txm.RunInTx(context.Background(), func(txCtx context.Context) error {
		_, err := repo.Next(txCtx, model.SequenceKindInvoice)
		return err
	})
	assert.ErrorIs(t, err, apperror.ErrNumberingExhausted)

	current, err := repo.Current(context.Background(), model.SequenceKindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), current)
}

// On SQLite the single pooled connection runs the issuers one after another,
// so this only shows that serial issuing never repeats a value.
func TestSequenceConcurrentIssuersNeverCollide(t *testing.T) {
	assertConcurrentIssuersNeverCollide(t, testutil.NewDB(t))
}

// Exercises the FOR UPDATE row lock with issuers running in parallel.
func TestSequenceConcurrentIssuersNeverCollidePostgres(t *testing.T) {
	assertConcurrentIssuersNeverCollide(t, testutil.NewPostgresDB(t))
}

func assertConcurrentIssuersNeverCollide(t *testing.T, db *gorm.DB) {
	t.Helper()
	repo := repository.NewSequenceRepository(db)
	txm := repository.NewTransactionManager(db)

	const workers = 20
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := txm.RunInTx(context.Background(), func(txCtx context.Context) error {
				v, err := repo.Next(txCtx, model.SequenceKindEstimate)
				if err == nil {
					values <- v
				}
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		assert.False(t, seen[v], "duplicate sequence value %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing value %d", i)
	}
}
