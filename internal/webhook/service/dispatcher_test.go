package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/config"
	"github.com/smallbiznis/catalogd/internal/webhook/domain"
	"github.com/smallbiznis/catalogd/internal/webhook/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

func setupDispatcher(t *testing.T) (*Dispatcher, *gorm.DB, *sleepRecorder, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Webhook{}))

	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	d := NewDispatcher(DispatcherParams{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: fake,
		Cfg: config.Config{
			WebhookTimeoutSeconds: 2,
			WebhookMaxAttempts:    4,
		},
	})

	rec := &sleepRecorder{}
	d.sleep = rec.sleep
	return d, db, rec, fake
}

// A single shared node keeps the snowflake step counter incrementing across
// addHook calls; a fresh node per call can emit duplicate IDs within one
// millisecond.
var testNode = func() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}()

func addHook(t *testing.T, db *gorm.DB, url, event string, active bool) {
	t.Helper()
	// A map-based create is required here: with a struct, GORM replaces a
	// zero-valued is_active (false) with the column's default:true.
	require.NoError(t, db.Model(&domain.Webhook{}).Create(map[string]any{
		"id":         testNode.Generate().Int64(),
		"url":        url,
		"event_type": event,
		"is_active":  active,
		"created_at": time.Now().UTC(),
	}).Error)
}

func TestDispatchDeliversPayload(t *testing.T) {
	var (
		mu      sync.Mutex
		body    []byte
		ctype   string
		numReqs int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		numReqs++
		ctype = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, db, rec, fake := setupDispatcher(t)
	addHook(t, db, srv.URL, domain.EventProductCreated, true)

	err := d.Dispatch(context.Background(), domain.DispatchEvent{
		Event:      domain.EventProductCreated,
		ResourceID: "12345",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, numReqs)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, 0, rec.count())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, domain.EventProductCreated, payload["event"])
	assert.Equal(t, "12345", payload["resource_id"])
	assert.Equal(t, fake.Now().Format(time.RFC3339), payload["timestamp"])
}

func TestDispatchSkipsInactiveAndUnrelatedHooks(t *testing.T) {
	var numReqs atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		numReqs.Add(1)
	}))
	defer srv.Close()

	d, db, _, _ := setupDispatcher(t)
	addHook(t, db, srv.URL, domain.EventProductCreated, false)
	addHook(t, db, srv.URL, domain.EventProductDeleted, true)

	err := d.Dispatch(context.Background(), domain.DispatchEvent{
		Event:      domain.EventProductCreated,
		ResourceID: "1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, numReqs.Load())
}

func TestDispatchRetriesTransportErrors(t *testing.T) {
	// A closed listener guarantees a connection error on every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	d, db, rec, _ := setupDispatcher(t)
	addHook(t, db, deadURL, domain.EventProductUpdated, true)

	err := d.Dispatch(context.Background(), domain.DispatchEvent{
		Event:      domain.EventProductUpdated,
		ResourceID: "1",
	})
	require.NoError(t, err)

	// Four attempts means three backoff waits: 1s, 2s, 4s.
	require.Equal(t, 3, rec.count())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestDispatchNoRetryOnErrorStatus(t *testing.T) {
	var numReqs atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		numReqs.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, db, rec, _ := setupDispatcher(t)
	addHook(t, db, srv.URL, domain.EventImportCompleted, true)

	err := d.Dispatch(context.Background(), domain.DispatchEvent{
		Event:      domain.EventImportCompleted,
		ResourceID: "1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, numReqs.Load())
	assert.Equal(t, 0, rec.count())
}

func TestDispatchEndpointsIndependent(t *testing.T) {
	var numReqs atomic.Int32
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		numReqs.Add(1)
	}))
	defer live.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	d, db, _, _ := setupDispatcher(t)
	addHook(t, db, deadURL, domain.EventProductCreated, true)
	addHook(t, db, live.URL, domain.EventProductCreated, true)

	err := d.Dispatch(context.Background(), domain.DispatchEvent{
		Event:      domain.EventProductCreated,
		ResourceID: "1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, numReqs.Load())
}

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))

	// Far out attempts hit the cap.
	assert.Equal(t, 30*time.Second, p.Delay(10))
	assert.Equal(t, 30*time.Second, p.Delay(63))
}
