package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	"github.com/smallbiznis/catalogd/internal/webhook/domain"
	"github.com/smallbiznis/catalogd/internal/webhook/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWebhookService(t *testing.T) (domain.Service, *taskqueue.Queue) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Webhook{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	queue := taskqueue.New(taskqueue.Config{Workers: 1, Capacity: 16}, zap.NewNop(), taskqueue.NewMemoryStatusStore(), nil)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: fake,
		Queue: queue,
	})
	return svc, queue
}

func TestCreateWebhook(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		URL:       "https://example.com/hooks",
		EventType: domain.EventProductCreated,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hooks", created.URL)
	assert.Equal(t, domain.EventProductCreated, created.EventType)
	assert.True(t, created.IsActive)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateWebhookValidation(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"missing scheme", domain.CreateRequest{URL: "example.com/hooks", EventType: domain.EventProductCreated}, domain.ErrInvalidURL},
		{"bad scheme", domain.CreateRequest{URL: "ftp://example.com/hooks", EventType: domain.EventProductCreated}, domain.ErrInvalidURL},
		{"missing host", domain.CreateRequest{URL: "https:///hooks", EventType: domain.EventProductCreated}, domain.ErrInvalidURL},
		{"unknown event", domain.CreateRequest{URL: "https://example.com/hooks", EventType: "order.created"}, domain.ErrInvalidEvent},
		{"empty event", domain.CreateRequest{URL: "https://example.com/hooks"}, domain.ErrInvalidEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateWebhook(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		URL:       "https://example.com/hooks",
		EventType: domain.EventProductCreated,
	})
	require.NoError(t, err)

	newEvent := domain.EventImportCompleted
	inactive := false
	updated, err := svc.Update(ctx, domain.UpdateRequest{
		ID:        created.ID,
		EventType: &newEvent,
		IsActive:  &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EventImportCompleted, updated.EventType)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "https://example.com/hooks", updated.URL)
}

func TestDeleteWebhook(t *testing.T) {
	svc, _ := setupWebhookService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		URL:       "https://example.com/hooks",
		EventType: domain.EventProductCreated,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTestWebhookQueuesDispatch(t *testing.T) {
	svc, queue := setupWebhookService(t)
	ctx := context.Background()

	dispatched := make(chan domain.DispatchEvent, 1)
	queue.Register(domain.TaskKindDispatch, func(ctx context.Context, task *taskqueue.Task) (map[string]any, error) {
		var ev domain.DispatchEvent
		if err := json.Unmarshal(task.Payload, &ev); err != nil {
			return nil, err
		}
		dispatched <- ev
		return nil, nil
	})

	runCtx, cancel := context.WithCancel(context.Background())
	queue.Start(runCtx)
	t.Cleanup(func() {
		queue.Close()
		queue.Wait()
		cancel()
	})

	created, err := svc.Create(ctx, domain.CreateRequest{
		URL:       "https://example.com/hooks",
		EventType: domain.EventProductUpdated,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Test(ctx, created.ID))

	select {
	case ev := <-dispatched:
		assert.Equal(t, domain.EventProductUpdated, ev.Event)
		assert.Equal(t, "test", ev.ResourceID)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch task never ran")
	}
}

func TestTestWebhookUnknownID(t *testing.T) {
	svc, _ := setupWebhookService(t)

	err := svc.Test(context.Background(), "987654321")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
