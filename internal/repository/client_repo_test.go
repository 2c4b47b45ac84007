package repository_test

import (
	"context"
	"testing"

	"invoicing/internal/model"
	"invoicing/internal/repository"
	"invoicing/internal/testutil"
	"invoicing/pkg/pagination"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientListSearchAndCategory(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewClientRepository(db)
	ctx := context.Background()

	for _, c := range []model.Client{
		{Name: "Sagar Ratna", Email: "accounts@sagar.example", Category: model.ClientCategoryChain},
		{Name: "Haldiram Foods", Category: model.ClientCategoryBrand},
		{Name: "Sagar Group", Category: model.ClientCategoryGroup},
	} {
		c := c
		require.NoError(t, repo.Create(ctx, &c))
	}

	found, total, err := repo.List(ctx, "", "sagar", pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, found, 2)

	chains, total, err := repo.List(ctx, model.ClientCategoryChain, "SAGAR", pagination.New(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, chains, 1)
	assert.Equal(t, "Sagar Ratna", chains[0].Name)

	page2, total, err := repo.List(ctx, "", "", pagination.New(2, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page2, 1)
}

func TestClientCountDocuments(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewClientRepository(db)
	ctx := context.Background()

	client := model.Client{Name: "Barbeque Nation", Category: model.ClientCategoryChain}
	require.NoError(t, repo.Create(ctx, &client))

	n, err := repo.CountDocuments(ctx, client.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	est := model.Estimate{EstimateNo: "EST-000001", ClientID: client.ID, Status: model.EstimateStatusDraft}
	require.NoError(t, est.SetSubtotal(decimal.NewFromInt(100)))
	require.NoError(t, db.Create(&est).Error)

	n, err = repo.CountDocuments(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
