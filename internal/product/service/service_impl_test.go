package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/product/domain"
	"github.com/smallbiznis/catalogd/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: fake,
	})
	return svc, db, fake
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateNormalizesAndGet(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		SKU:         "  Widget-01  ",
		Name:        "Widget",
		Description: strPtr("  A widget  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "widget-01", created.SKU)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "A widget", created.Description)
	assert.True(t, created.Active)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "widget-01", got.SKU)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "   ", Name: "Widget"})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)

	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "a1", Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "a1", Name: "Widget"})
	require.NoError(t, err)

	// Same sku in a different case still collides.
	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "A1", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestUpdateFields(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{SKU: "a1", Name: "Widget"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID:     created.ID,
		Name:   strPtr("Widget v2"),
		Active: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, "a1", updated.SKU)
}

func TestGetErrors(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Get(ctx, "123456789")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRemovesProduct(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{SKU: "a1", Name: "Widget"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertCreatesThenUpdatesInPlace(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()

	first, created, err := svc.Upsert(ctx, db, domain.UpsertRequest{
		SKU:  "A1",
		Name: "Widget",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a1", first.SKU)

	// Deactivate, then re-import under a different case.
	_, err = svc.Update(ctx, domain.UpdateRequest{
		ID:     snowflake.ID(first.ID).String(),
		Active: boolPtr(false),
	})
	require.NoError(t, err)

	second, created, err := svc.Upsert(ctx, db, domain.UpsertRequest{
		SKU:         "  a1 ",
		Name:        "Widget v2",
		Description: "fresh",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Widget v2", second.Name)
	assert.Equal(t, "fresh", second.Description)
	assert.True(t, second.Active)

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertRejectsEmptySKU(t *testing.T) {
	svc, db, _ := setupService(t)

	_, _, err := svc.Upsert(context.Background(), db, domain.UpsertRequest{SKU: "   ", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)
}

func TestBulkDelete(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, domain.CreateRequest{
			SKU:  fmt.Sprintf("sku-%d", i),
			Name: "Widget",
		})
		require.NoError(t, err)
	}

	count, err := svc.BulkDelete(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	var remaining int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&remaining).Error)
	assert.EqualValues(t, 0, remaining)
}

func TestListPagination(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, domain.CreateRequest{
			SKU:  fmt.Sprintf("sku-%d", i),
			Name: fmt.Sprintf("Widget %d", i),
		})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Products, 2)
	assert.EqualValues(t, 5, resp.TotalCount)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, 2, resp.CurrentPage)
}

func TestListFilterBySKU(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "alpha-1", Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "beta-1", Name: "Beta"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, domain.ListRequest{SKU: "alpha"})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "alpha-1", resp.Products[0].SKU)
}
