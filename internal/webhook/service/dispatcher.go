package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smallbiznis/catalogd/internal/clock"
	"github.com/smallbiznis/catalogd/internal/config"
	obsmetrics "github.com/smallbiznis/catalogd/internal/observability/metrics"
	"github.com/smallbiznis/catalogd/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	resultDelivered = "delivered"
	resultHTTPError = "http_error"
	resultAbandoned = "abandoned"
)

type DispatcherParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Cfg     config.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Dispatcher fans an event out to every active matching webhook. Each
// delivery is independent: one endpoint's permanent failure never
// blocks the others.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	client  *http.Client
	policy  RetryPolicy
	metrics *obsmetrics.Metrics

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	timeout := time.Duration(p.Cfg.WebhookTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	policy := RetryPolicy{MaxAttempts: p.Cfg.WebhookMaxAttempts}.withDefaults()

	return &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("webhook.dispatcher"),
		repo:    p.Repo,
		clock:   p.Clock,
		client:  &http.Client{Timeout: timeout},
		policy:  policy,
		metrics: p.Metrics,
		sleep:   sleepCtx,
	}
}

// Dispatch delivers ev to all active webhooks subscribed to its event
// type. It returns an error only when the subscriber list cannot be
// loaded; individual delivery failures are logged and absorbed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.DispatchEvent) error {
	hooks, err := d.repo.FindActiveByEvent(ctx, d.db, ev.Event)
	if err != nil {
		return fmt.Errorf("load webhooks for %s: %w", ev.Event, err)
	}
	if len(hooks) == 0 {
		return nil
	}

	for _, hook := range hooks {
		d.deliver(ctx, hook, ev)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, hook domain.Webhook, ev domain.DispatchEvent) {
	payload := map[string]any{
		"event":       ev.Event,
		"resource_id": ev.ResourceID,
		"timestamp":   d.clock.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("marshal webhook payload", zap.Error(err))
		return
	}

	log := d.log.With(
		zap.String("url", hook.URL),
		zap.String("event", ev.Event),
		zap.String("resource_id", ev.ResourceID),
	)

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		status, err := d.post(ctx, hook.URL, body)
		if err == nil {
			if status >= 200 && status < 300 {
				d.metrics.IncDeliveryAttempt("ok")
				d.metrics.IncDelivery(ev.Event, resultDelivered)
				log.Info("webhook delivered", zap.Int("status", status))
				return
			}
			// Application-level failure: best effort, no retry.
			d.metrics.IncDeliveryAttempt(resultHTTPError)
			d.metrics.IncDelivery(ev.Event, resultHTTPError)
			log.Warn("webhook returned error status", zap.Int("status", status))
			return
		}

		d.metrics.IncDeliveryAttempt("transport_error")
		log.Warn("webhook delivery attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == d.policy.MaxAttempts {
			break
		}
		if err := d.sleep(ctx, d.policy.Delay(attempt)); err != nil {
			break
		}
	}

	d.metrics.IncDelivery(ev.Event, resultAbandoned)
	log.Error("webhook delivery abandoned",
		zap.Int("attempts", d.policy.MaxAttempts),
	)
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
